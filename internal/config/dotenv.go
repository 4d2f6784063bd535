package config

import (
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnvFiles reads .env and .env.local from dir into the process
// environment. Values in .env only fill variables that are unset. Values in
// .env.local override both .env and the real environment. Missing files are
// ignored.
func LoadEnvFiles(dir string) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	_ = godotenv.Overload(filepath.Join(dir, ".env.local"))
}
