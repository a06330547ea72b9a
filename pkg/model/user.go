package model

import (
	"time"

	"github.com/lib/pq"

	"github.com/doodlesbykumbi/credvault/pkg/access"
)

type User struct {
	ID        string      `gorm:"column:id;primaryKey"`
	Name      string      `gorm:"column:name;not null"`
	Role      access.Role `gorm:"column:role;type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

type Group struct {
	ID          string         `gorm:"column:id;primaryKey"`
	Name        string         `gorm:"column:name;not null"`
	Description string         `gorm:"column:description"`
	Actions     pq.StringArray `gorm:"column:actions;type:text[]"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Group) TableName() string {
	return "groups"
}

// Scope dimensions stored in membership_scopes.
const (
	DimensionCategory    = "category"
	DimensionEnvironment = "environment"
)

type Membership struct {
	ID      string            `gorm:"column:id;primaryKey"`
	UserID  string            `gorm:"column:user_id;not null"`
	GroupID string            `gorm:"column:group_id;not null"`
	Group   Group             `gorm:"foreignKey:GroupID"`
	Scopes  []MembershipScope `gorm:"foreignKey:MembershipID"`
}

func (Membership) TableName() string {
	return "memberships"
}

// Values returns the scope values recorded for dimension.
func (m Membership) Values(dimension string) []string {
	var out []string
	for _, s := range m.Scopes {
		if s.Dimension == dimension {
			out = append(out, s.Value)
		}
	}
	return out
}

type MembershipScope struct {
	MembershipID string `gorm:"column:membership_id;primaryKey"`
	Dimension    string `gorm:"column:dimension;primaryKey"`
	Value        string `gorm:"column:value;primaryKey"`
}

func (MembershipScope) TableName() string {
	return "membership_scopes"
}

// ToAccess converts a loaded membership into its access form.
func (m Membership) ToAccess() (access.Membership, error) {
	actions, err := access.ParseActionSet(m.Group.Actions)
	if err != nil {
		return access.Membership{}, err
	}
	return access.Membership{
		GroupID:      m.GroupID,
		GroupName:    m.Group.Name,
		Actions:      actions,
		Categories:   m.Values(DimensionCategory),
		Environments: m.Values(DimensionEnvironment),
	}, nil
}
