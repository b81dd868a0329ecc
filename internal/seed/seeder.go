// Package seed populates a development database with realistic data:
// a category tree with question sets, users, entities, reviews, reactions,
// comments, and circle connections.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/reviewinn/backend/internal/aggregation"
	"github.com/reviewinn/backend/internal/category"
	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	agg *aggregation.Engine
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, agg *aggregation.Engine) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db, agg: agg}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating categories...")
	leaves, err := s.seedCategories()
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	log("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	log("Creating entities...")
	entities, err := s.seedEntities(leaves, users, 120)
	if err != nil {
		return fmt.Errorf("failed to seed entities: %w", err)
	}

	log("Creating reviews...")
	reviews, err := s.seedReviews(users, entities, 400)
	if err != nil {
		return fmt.Errorf("failed to seed reviews: %w", err)
	}

	log("Creating reactions and comments...")
	if err := s.seedEngagement(users, reviews); err != nil {
		return fmt.Errorf("failed to seed engagement: %w", err)
	}

	log("Creating circle connections...")
	if err := s.seedCircles(users); err != nil {
		return fmt.Errorf("failed to seed circles: %w", err)
	}

	log("Recomputing aggregates...")
	for i := range entities {
		if err := s.agg.RecalculateEntityRating(s.db, entities[i].ID); err != nil {
			return err
		}
	}

	log("Seeding complete")
	return nil
}

// categoryTree is the seed taxonomy: roots with a few leaves each.
var categoryTree = map[string][]string{
	"Professionals": {"Doctors", "Lawyers", "Teachers", "Accountants"},
	"Companies":     {"Tech Startups", "Restaurants Chains", "Retail"},
	"Places":        {"Restaurants", "Hotels", "Parks"},
	"Products":      {"Electronics", "Appliances", "Books"},
	"Other":         nil,
}

func (s *Seeder) seedCategories() ([]models.UnifiedCategory, error) {
	engine := category.NewEngine(s.db)
	var leaves []models.UnifiedCategory

	sortOrder := 0
	for rootName, children := range categoryTree {
		sortOrder++
		root, err := s.ensureCategory(engine, rootName, 0, sortOrder)
		if err != nil {
			return nil, err
		}
		if len(children) == 0 {
			leaves = append(leaves, *root)
		}
		for i, childName := range children {
			child, err := s.ensureCategory(engine, childName, root.ID, i)
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, *child)
		}

		// Root-level question template; deeper paths synthesize from it.
		questions := []models.RatingQuestion{
			{Key: "quality", Question: "How would you rate the quality of the service?", Description: "Overall quality"},
			{Key: "communication", Question: "How well did their professional communicate?", Description: "Clarity and responsiveness"},
			{Key: "value", Question: "How would you rate the value for money?", Description: "Cost versus benefit"},
			{Key: "reliability", Question: "How reliable was the service?", Description: "Consistency and dependability"},
			{Key: "satisfaction", Question: "How satisfied are you overall?", Description: "Overall satisfaction"},
		}
		row := models.CategoryQuestion{
			CategoryPath:   root.Path,
			CategoryName:   root.Name,
			CategoryLevel:  1,
			IsRootCategory: true,
			Questions:      questions,
			IsActive:       true,
		}
		err = s.db.Where("category_path = ?", root.Path).FirstOrCreate(&row).Error
		if err != nil {
			return nil, err
		}
	}
	return leaves, nil
}

func (s *Seeder) ensureCategory(engine *category.Engine, name string, parentID uint64, sortOrder int) (*models.UnifiedCategory, error) {
	slug := category.Slugify(name)
	var existing models.UnifiedCategory
	query := s.db.Where("slug = ?", slug)
	if parentID == 0 {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", parentID)
	}
	if err := query.First(&existing).Error; err == nil {
		return &existing, nil
	}
	return engine.Create(context.Background(), name, parentID, sortOrder)
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s%d", gofakeit.Username(), i)
		user := models.User{
			Email:        fmt.Sprintf("user%d@%s", i, gofakeit.DomainName()),
			Username:     username,
			DisplayName:  gofakeit.Name(),
			FirstName:    gofakeit.FirstName(),
			LastName:     gofakeit.LastName(),
			Bio:          gofakeit.Sentence(12),
			PasswordHash: &hashStr,
			IsActive:     true,
			IsVerified:   gofakeit.Bool(),
			Level:        rand.Intn(10) + 1,
			Points:       rand.Intn(5000),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedEntities(leaves []models.UnifiedCategory, users []models.User, count int) ([]models.Entity, error) {
	engine := category.NewEngine(s.db)
	entities := make([]models.Entity, 0, count)
	for i := 0; i < count; i++ {
		leaf := leaves[rand.Intn(len(leaves))]
		root, err := engine.RootAncestor(context.Background(), leaf.ID)
		if err != nil {
			return nil, err
		}

		claimer := users[rand.Intn(len(users))]
		entity := models.Entity{
			Name:            gofakeit.Company(),
			Description:     gofakeit.Paragraph(1, 3, 12, " "),
			RootCategoryID:  root.ID,
			FinalCategoryID: leaf.ID,
			Context: models.JSONMap{
				"city":    gofakeit.City(),
				"country": gofakeit.Country(),
			},
			IsVerified: gofakeit.Bool(),
			IsClaimed:  true,
			ClaimedBy:  &claimer.ID,
		}
		if err := s.db.Create(&entity).Error; err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (s *Seeder) seedReviews(users []models.User, entities []models.Entity, count int) ([]models.Review, error) {
	reviews := make([]models.Review, 0, count)
	seen := make(map[[2]uint64]bool)

	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]
		entity := entities[rand.Intn(len(entities))]
		pair := [2]uint64{user.ID, entity.ID}
		if seen[pair] {
			continue
		}
		seen[pair] = true

		rating := float64(rand.Intn(9)+2) / 2 // 1.0 .. 5.0 in half steps
		review := models.Review{
			UserID:        user.ID,
			EntityID:      entity.ID,
			Title:         gofakeit.Sentence(6),
			Content:       gofakeit.Paragraph(2, 4, 15, " "),
			OverallRating: rating,
			Ratings: models.RatingMap{
				"quality":      float64(rand.Intn(5) + 1),
				"value":        float64(rand.Intn(5) + 1),
				"satisfaction": float64(rand.Intn(5) + 1),
			},
			Pros:        models.StringList{gofakeit.Sentence(4), gofakeit.Sentence(4)},
			Cons:        models.StringList{gofakeit.Sentence(4)},
			IsAnonymous: rand.Intn(10) == 0,
		}
		if err := s.db.Create(&review).Error; err != nil {
			return nil, err
		}
		err := s.db.Model(&models.User{}).
			Where("id = ?", user.ID).
			UpdateColumn("review_count", gorm.Expr("review_count + 1")).Error
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func (s *Seeder) seedEngagement(users []models.User, reviews []models.Review) error {
	kinds := make([]models.ReactionKind, 0, len(models.ValidReactionKinds))
	for kind := range models.ValidReactionKinds {
		kinds = append(kinds, kind)
	}

	for i := range reviews {
		review := &reviews[i]
		reactors := rand.Intn(8)
		for j := 0; j < reactors && j < len(users); j++ {
			user := users[(i+j)%len(users)]
			if user.ID == review.UserID {
				continue
			}
			reaction := models.ReviewReaction{
				ReviewID: review.ID,
				UserID:   user.ID,
				Kind:     kinds[rand.Intn(len(kinds))],
			}
			if err := s.db.Create(&reaction).Error; err != nil {
				return err
			}
		}
		if err := s.agg.RefreshReviewReactions(s.db, review.ID); err != nil {
			return err
		}

		if rand.Intn(3) == 0 {
			commenter := users[rand.Intn(len(users))]
			comment := models.Comment{
				ReviewID: review.ID,
				UserID:   commenter.ID,
				Content:  gofakeit.Sentence(10),
			}
			if err := s.db.Create(&comment).Error; err != nil {
				return err
			}
			err := s.db.Model(&models.Review{}).
				Where("id = ?", review.ID).
				UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) seedCircles(users []models.User) error {
	for i := range users {
		circle := models.ReviewCircle{
			Name:      fmt.Sprintf("%s's Review Circle", users[i].Username),
			CreatorID: users[i].ID,
		}
		if err := s.db.Create(&circle).Error; err != nil {
			return err
		}
		owner := models.CircleConnection{
			UserID:     users[i].ID,
			CircleID:   circle.ID,
			TrustLevel: models.TrustReviewMentor,
			JoinedAt:   time.Now().UTC(),
		}
		if err := s.db.Create(&owner).Error; err != nil {
			return err
		}

		// A few cross-memberships so suggestion ranking has signal.
		for j := 0; j < 3; j++ {
			member := users[rand.Intn(len(users))]
			if member.ID == users[i].ID {
				continue
			}
			conn := models.CircleConnection{
				UserID:          member.ID,
				CircleID:        circle.ID,
				TrustLevel:      models.TrustReviewer,
				TasteMatchScore: 60 + rand.Float64()*35,
				JoinedAt:        time.Now().UTC(),
			}
			if err := s.db.Where("user_id = ? AND circle_id = ?", member.ID, circle.ID).
				FirstOrCreate(&conn).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
