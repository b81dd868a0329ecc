package category

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/reviewinn/backend/internal/logger"
	"github.com/reviewinn/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Resolution sources, in fallback order.
const (
	SourceSpecific       = "specific"
	SourceParentFallback = "parent_fallback"
	SourceRootFallback   = "root_fallback"
	SourceAutoCreated    = "auto_created"
	SourceFinalFallback  = "final_fallback"
)

// GenericCategoryPath is the last-resort question set.
const GenericCategoryPath = "other"

// Resolution is the contract of a question lookup. Source records which
// fallback step produced the questions.
type Resolution struct {
	Questions    []models.RatingQuestion `json:"questions"`
	CategoryName string                  `json:"category_name"`
	CategoryPath string                  `json:"category_path"`
	IsFallback   bool                    `json:"is_fallback"`
	Source       string                  `json:"source"`
	MatchedPath  string                  `json:"matched_path,omitempty"`
	FallbackFrom string                  `json:"fallback_from,omitempty"`
}

// genericTokens are the placeholder subjects used in template question
// texts; synthesis swaps them for the concrete category name.
var genericTokens = []string{
	"their professional",
	"the product",
	"this place",
	"the service",
}

// defaultQuestions is the set materialized for a brand-new root category
// with no template to inherit from.
var defaultQuestions = []models.RatingQuestion{
	{Key: "quality", Question: "How would you rate the overall quality?", Description: "General quality of what was provided"},
	{Key: "service", Question: "How was the service you received?", Description: "Responsiveness, attitude, and helpfulness"},
	{Key: "reliability", Question: "How reliable was your experience?", Description: "Consistency and dependability"},
	{Key: "satisfaction", Question: "How satisfied are you overall?", Description: "Your overall satisfaction"},
	{Key: "value", Question: "How would you rate the value for money?", Description: "What you got relative to what it cost"},
}

// GetQuestionsForCategory walks the strict fallback chain for a category
// path and returns the first hit, or nil when every step misses:
//
//  1. the exact path                         -> specific (bumps usage)
//  2. intermediate ancestors, bottom-up      -> parent_fallback
//  3. the root's questions, when synthesis
//     cannot persist a row                   -> root_fallback
//  4. a row synthesized from the root's
//     template (or the default set for a
//     brand-new root)                        -> auto_created
//  5. the generic "other" row                -> final_fallback
func (e *Engine) GetQuestionsForCategory(ctx context.Context, rawPath string) (*Resolution, error) {
	rawPath = strings.TrimSpace(rawPath)
	if rawPath == "" {
		return nil, nil
	}

	// Step 1: exact match.
	if row, matched, err := e.lookupQuestionRow(ctx, rawPath); err != nil {
		return nil, err
	} else if row != nil {
		e.bumpUsage(ctx, row)
		return &Resolution{
			Questions:    row.Questions,
			CategoryName: row.CategoryName,
			CategoryPath: rawPath,
			Source:       SourceSpecific,
			MatchedPath:  matched,
		}, nil
	}

	// Step 2: walk intermediate ancestors, excluding the root segment.
	rootPath := RootSegment(rawPath)
	for parent := ParentPath(rawPath); parent != "" && PathSegments(parent)[0] != parent; parent = ParentPath(parent) {
		row, matched, err := e.lookupQuestionRow(ctx, parent)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		return &Resolution{
			Questions:    row.Questions,
			CategoryName: row.CategoryName,
			CategoryPath: rawPath,
			IsFallback:   true,
			Source:       SourceParentFallback,
			MatchedPath:  matched,
			FallbackFrom: rawPath,
		}, nil
	}

	// Steps 3 and 4: a deeper path with a root template gets its own row
	// synthesized from that template; if synthesis cannot persist, the
	// root's questions answer directly. A brand-new root materializes the
	// default set.
	row, err := e.synthesize(ctx, rawPath)
	if err != nil {
		rootRow, matched, lookupErr := e.lookupQuestionRow(ctx, rootPath)
		if lookupErr == nil && rootRow != nil {
			return &Resolution{
				Questions:    rootRow.Questions,
				CategoryName: rootRow.CategoryName,
				CategoryPath: rawPath,
				IsFallback:   true,
				Source:       SourceRootFallback,
				MatchedPath:  matched,
				FallbackFrom: rawPath,
			}, nil
		}
		return nil, err
	}
	if row != nil {
		return &Resolution{
			Questions:    row.Questions,
			CategoryName: row.CategoryName,
			CategoryPath: rawPath,
			IsFallback:   true,
			Source:       SourceAutoCreated,
			MatchedPath:  row.CategoryPath,
			FallbackFrom: rawPath,
		}, nil
	}

	// Step 5: the generic catch-all.
	generic, matched, err := e.lookupQuestionRow(ctx, GenericCategoryPath)
	if err != nil {
		return nil, err
	}
	if generic != nil {
		return &Resolution{
			Questions:    generic.Questions,
			CategoryName: generic.CategoryName,
			CategoryPath: rawPath,
			IsFallback:   true,
			Source:       SourceFinalFallback,
			MatchedPath:  matched,
			FallbackFrom: rawPath,
		}, nil
	}

	return nil, nil
}

// GetQuestionsForEntity resolves questions through the entity's final
// category path, which already encodes the root as its first segment.
func (e *Engine) GetQuestionsForEntity(ctx context.Context, entity *models.Entity) (*Resolution, error) {
	final, err := e.GetByID(ctx, entity.FinalCategoryID)
	if err != nil {
		return nil, err
	}
	return e.GetQuestionsForCategory(ctx, final.Path)
}

// lookupQuestionRow tries each candidate form of the path until one hits.
func (e *Engine) lookupQuestionRow(ctx context.Context, rawPath string) (*models.CategoryQuestion, string, error) {
	for _, candidate := range PathCandidates(rawPath) {
		var row models.CategoryQuestion
		err := e.db.WithContext(ctx).
			First(&row, "category_path = ? AND is_active = ?", candidate, true).Error
		if err == nil {
			return &row, candidate, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
	}
	return nil, "", nil
}

// bumpUsage is a fire-and-forget usage stat; failures never block resolution.
func (e *Engine) bumpUsage(ctx context.Context, row *models.CategoryQuestion) {
	now := time.Now().UTC()
	err := e.db.WithContext(ctx).Model(row).Updates(map[string]any{
		"usage_count":  gorm.Expr("usage_count + 1"),
		"last_used_at": now,
	}).Error
	if err != nil {
		logger.Warn("failed to bump question usage",
			zap.String("category_path", row.CategoryPath),
			zap.Error(err),
		)
	}
}

// synthesize creates a question row for a path that has none. A non-root
// path inherits the root's questions customized with the category's name;
// a brand-new root materializes the default set. Returns nil when the path
// is not a root and its root has no template either.
func (e *Engine) synthesize(ctx context.Context, rawPath string) (*models.CategoryQuestion, error) {
	segments := PathSegments(rawPath)
	name := e.displayName(ctx, rawPath)

	var questions []models.RatingQuestion
	isRoot := len(segments) == 1

	if isRoot {
		questions = customizeQuestions(defaultQuestions, name)
	} else {
		rootRow, _, err := e.lookupQuestionRow(ctx, segments[0])
		if err != nil {
			return nil, err
		}
		if rootRow == nil {
			return nil, nil
		}
		questions = customizeQuestions(rootRow.Questions, name)
	}

	row := &models.CategoryQuestion{
		CategoryPath:   rawPath,
		CategoryName:   name,
		CategoryLevel:  len(segments),
		IsRootCategory: isRoot,
		Questions:      questions,
		IsActive:       true,
	}

	if err := e.db.WithContext(ctx).Create(row).Error; err != nil {
		// A concurrent request may have synthesized the same row; the
		// unique path index makes that a conflict we resolve by re-reading.
		existing, _, lookupErr := e.lookupQuestionRow(ctx, rawPath)
		if lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return row, nil
}

// customizeQuestions swaps generic subject tokens for the category name and
// scopes each description to the category.
func customizeQuestions(template []models.RatingQuestion, name string) []models.RatingQuestion {
	lower := strings.ToLower(name)
	out := make([]models.RatingQuestion, len(template))
	for i, q := range template {
		text := q.Question
		for _, token := range genericTokens {
			text = strings.ReplaceAll(text, token, lower)
		}
		desc := q.Description
		if desc != "" {
			desc += " (for " + lower + ")"
		}
		out[i] = models.RatingQuestion{
			Key:         q.Key,
			Question:    text,
			Description: desc,
		}
	}
	return out
}

// displayName prefers the tree's category name and falls back to
// humanizing the last path segment.
func (e *Engine) displayName(ctx context.Context, rawPath string) string {
	if cat, err := e.GetByPath(ctx, rawPath); err == nil {
		return cat.Name
	}
	segments := PathSegments(rawPath)
	return humanizeSegment(segments[len(segments)-1])
}

// humanizeSegment turns "real-estate" into "Real Estate".
func humanizeSegment(segment string) string {
	words := strings.FieldsFunc(segment, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
