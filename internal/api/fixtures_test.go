package api

import "ims/internal/domain"

func userFixture() domain.User {
	return domain.User{
		ShortNames:     []string{"alice"},
		Groups:         []string{"dispatch"},
		Active:         true,
		UserID:         "u-alice",
		HashedPassword: "$2a$10$fixture",
	}
}

func userZero() domain.User { return domain.User{} }

func rangerFixtures() []domain.Ranger {
	return []domain.Ranger{
		{Handle: "ada", Name: "Ada L", Status: domain.RangerStatusActive, Email: "ada@example.org"},
		{Handle: "zed", Name: "Zed Q", Status: domain.RangerStatusVintage, Email: "zed@example.org"},
	}
}
