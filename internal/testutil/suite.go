package testutil

import (
	"context"

	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun"
)

// DBSuite gives each suite its own migrated database and empties it
// before every test.
//
//	type RepositorySuite struct {
//	    testutil.DBSuite
//	}
type DBSuite struct {
	suite.Suite
	DB  *bun.DB
	Ctx context.Context
}

func (s *DBSuite) SetupSuite() {
	s.Ctx = context.Background()
	s.DB = NewTestDB(s.T())
}

func (s *DBSuite) SetupTest() {
	s.Require().NoError(TruncateTables(s.Ctx, s.DB))
}
