package models

import (
	"time"

	"github.com/google/uuid"
)

// BootstrapNodeContent и BootstrapNodeTitle - содержимое первого узла новой истории.
const (
	BootstrapNodeContent = "Your story begins here..."
	BootstrapNodeTitle   = "Beginning"
)

// User - автор историй.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	DisplayName  string    `json:"displayName" db:"display_name"`
	Bio          *string   `json:"bio,omitempty" db:"bio"`
	IsAdmin      bool      `json:"isAdmin" db:"is_admin"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// AuthorSummary - публичные сведения об авторе для списков историй.
type AuthorSummary struct {
	ID          uuid.UUID `json:"id" db:"author_id"`
	DisplayName string    `json:"displayName" db:"author_display_name"`
}

// Story - ветвящаяся история одного автора.
// IsDraft и IsPublished независимы; только IsPublished открывает историю другим.
type Story struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	CoverImage  *string    `json:"coverImage,omitempty" db:"cover_image"`
	IsDraft     bool       `json:"isDraft" db:"is_draft"`
	IsPublished bool       `json:"isPublished" db:"is_published"`
	AuthorID    uuid.UUID  `json:"authorId" db:"author_id"`
	FirstNodeID *uuid.UUID `json:"firstNodeId,omitempty" db:"first_node_id"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// StoryWithAuthor - история в публичном списке.
type StoryWithAuthor struct {
	Story
	Author AuthorSummary `json:"author"`
}

// Node - единица содержимого истории.
type Node struct {
	ID        uuid.UUID `json:"id" db:"id"`
	StoryID   uuid.UUID `json:"storyId" db:"story_id"`
	Title     *string   `json:"title,omitempty" db:"title"`
	Content   string    `json:"content" db:"content"`
	IsEnding  bool      `json:"isEnding" db:"is_ending"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// NodeWithChoices - узел вместе с исходящими выборами в порядке отображения.
type NodeWithChoices struct {
	Node
	Choices []Choice `json:"choices"`
}

// Choice - упорядоченное ребро между двумя узлами одной истории.
type Choice struct {
	ID           uuid.UUID `json:"id" db:"id"`
	SourceNodeID uuid.UUID `json:"sourceNodeId" db:"source_node_id"`
	TargetNodeID uuid.UUID `json:"targetNodeId" db:"target_node_id"`
	Text         string    `json:"text" db:"text"`
	Order        int       `json:"order" db:"order"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// StoryPage - страница списка историй с курсором следующей страницы.
type StoryPage struct {
	Stories    []StoryWithAuthor `json:"stories"`
	NextCursor string            `json:"nextCursor,omitempty"`
}
