package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/internal/utils"
	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/rs/zerolog/log"
)

const DefaultAdminUsername = "admin"

// Seed creates the staff account and, when the store is empty, a set of demo
// listings. With an empty adminPassword a random one is generated and returned;
// nothing is returned when the admin already exists.
func (s *Server) Seed(ctx context.Context, adminPassword string) (generatedPassword string, err error) {
	log.Info().Msg("🔧 Bootstrap: checking seed data...")

	admin, generatedPassword, err := s.bootstrapAdmin(adminPassword)
	if err != nil {
		return "", fmt.Errorf("[Server.Seed] failed to bootstrap admin: %w", err)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if s.store.CountProperties() == 0 {
		s.seedListings(admin.ID)
	}

	if generatedPassword != "" {
		log.Info().Msg("✅ Bootstrap complete")
		log.Info().Msgf("👤 Admin credentials: %s / %s", admin.Username, generatedPassword)
		log.Warn().Msg("⚠️  SAVE THIS PASSWORD - it will not be displayed again!")
	} else {
		log.Info().Str("username", admin.Username).Msg("✅ Bootstrap: admin already exists")
	}
	return generatedPassword, nil
}

func (s *Server) bootstrapAdmin(password string) (*users.User, string, error) {
	existing, err := s.users.GetByUsername(DefaultAdminUsername)
	if err == nil {
		return existing, "", nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to look up admin: %w", err)
	}

	generated := ""
	if password == "" {
		passwordBytes := make([]byte, 16)
		if _, err := rand.Read(passwordBytes); err != nil {
			return nil, "", fmt.Errorf("failed to generate password: %w", err)
		}
		password = base64.URLEncoding.EncodeToString(passwordBytes)
		generated = password
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	joined := s.nowTime()
	admin := &users.User{
		Username:     DefaultAdminUsername,
		Email:        "admin@marketplace.local",
		FirstName:    "Site",
		LastName:     "Administrator",
		IsStaff:      true,
		DateJoined:   &joined,
		PasswordHash: passwordHash,
	}
	if err := s.users.Create(admin); err != nil {
		return nil, "", fmt.Errorf("failed to create admin: %w", err)
	}
	log.Info().Str("username", admin.Username).Msg("   ✅ Created admin")
	return admin, generated, nil
}

func (s *Server) seedListings(adminID int) {
	properties := []resources.PropertyInput{
		{
			Title:      utils.Ptr("Modern 2 Bedroom Apartment"),
			Location:   utils.Ptr("Kilimani, Nairobi"),
			County:     utils.Ptr("Nairobi"),
			Town:       utils.Ptr("Kilimani"),
			Price:      utils.Ptr(resources.Money(65000)),
			Type:       utils.Ptr(resources.PropertyTypeRental),
			RentalType: utils.Ptr("apartment"),
			Bedrooms:   utils.Ptr(2),
			Bathrooms:  utils.Ptr(2),
			Featured:   utils.Ptr(true),
			Images:     []string{"/media/seed/kilimani.jpg"},
			Amenities:  []string{"parking", "wifi", "security"},
		},
		{
			Title:      utils.Ptr("Bedsitter near CBD"),
			Location:   utils.Ptr("Ngara, Nairobi"),
			County:     utils.Ptr("Nairobi"),
			Town:       utils.Ptr("Ngara"),
			Price:      utils.Ptr(resources.Money(12000)),
			Type:       utils.Ptr(resources.PropertyTypeRental),
			RentalType: utils.Ptr("bedsitter"),
			Bedrooms:   utils.Ptr(0),
			Bathrooms:  utils.Ptr(1),
		},
		{
			Title:     utils.Ptr("Beachfront Cottage"),
			Location:  utils.Ptr("Diani, Kwale"),
			County:    utils.Ptr("Kwale"),
			Town:      utils.Ptr("Diani"),
			Price:     utils.Ptr(resources.Money(9500)),
			PriceType: utils.Ptr("night"),
			Type:      utils.Ptr(resources.PropertyTypeAirbnb),
			Bedrooms:  utils.Ptr(3),
			Featured:  utils.Ptr(true),
		},
		{
			Title:    utils.Ptr("Serviced Office Suite"),
			Location: utils.Ptr("Westlands, Nairobi"),
			County:   utils.Ptr("Nairobi"),
			Town:     utils.Ptr("Westlands"),
			Price:    utils.Ptr(resources.Money(150000)),
			Type:     utils.Ptr(resources.PropertyTypeOffice),
			Area:     utils.Ptr(120),
		},
	}
	for _, in := range properties {
		if _, err := s.store.SaveProperty(0, in, adminID); err != nil {
			log.Err(err).Msg("[Server.seedListings] property")
		}
	}

	s.store.CreateMarketplaceItem(resources.MarketplaceItemInput{
		Title:       "Sofa",
		Price:       12000,
		Category:    "furniture",
		Condition:   "used",
		Description: "Three-seater fabric sofa",
		Location:    "Nairobi",
		Image:       "/media/seed/sofa.jpg",
	}, adminID)
	s.store.CreateMarketplaceItem(resources.MarketplaceItemInput{
		Title:     "Fridge",
		Price:     35000,
		Category:  "appliances",
		Condition: "new",
		Location:  "Mombasa",
		Image:     "/media/seed/fridge.jpg",
	}, adminID)

	s.store.CreateMovingService(resources.MovingServiceInput{
		Name:       "Swift Movers",
		Location:   "Nairobi",
		PriceRange: "KES 5,000 - 20,000",
		Services:   []string{"packing", "transport", "storage"},
		Image:      "/media/seed/swift.jpg",
	}, adminID)

	log.Info().Int("properties", len(properties)).Msg("   ✅ Seeded demo listings")
}
