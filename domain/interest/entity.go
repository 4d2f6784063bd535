package interest

import (
	"time"

	"github.com/uptrace/bun"
)

// CreatedAtLayout is how created_at leaves the API and the CSV export:
// UTC with microseconds and a Z suffix.
const CreatedAtLayout = "2006-01-02T15:04:05.000000Z"

// Interest is one waitlist submission.
type Interest struct {
	bun.BaseModel `bun:"table:interests,alias:i"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email,notnull"`
	Phone     string    `bun:"phone,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// InterestDTO is the JSON form of an Interest.
type InterestDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

func (i *Interest) ToDTO() InterestDTO {
	return InterestDTO{
		ID:        i.ID,
		Name:      i.Name,
		Email:     i.Email,
		Phone:     i.Phone,
		CreatedAt: i.CreatedAt.UTC().Format(CreatedAtLayout),
	}
}

// ListResponse is the body of GET /api/admin/interests.
type ListResponse struct {
	OK    bool          `json:"ok"`
	Items []InterestDTO `json:"items"`
	// Total counts every stored interest, ignoring the date filter.
	Total int `json:"total"`
}
