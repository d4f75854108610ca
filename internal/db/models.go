// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/uptrace/bun"
)

// The models below describe the six tables owned by the voting application.
// They are only used to create absent tables; row data always moves through
// the record codec so unknown columns are never silently dropped.

// SettingModel is a key/value application setting.
type SettingModel struct {
	bun.BaseModel `bun:"table:settings"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Key           string    `bun:"key,notnull,unique"`
	Value         string    `bun:"value"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// AdminModel holds admin panel credentials.
type AdminModel struct {
	bun.BaseModel `bun:"table:admins"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Username      string    `bun:"username,notnull,unique"`
	PasswordHash  string    `bun:"password_hash,notnull"`
	Role          string    `bun:"role,notnull,default:'admin'"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// UserModel is a voter.
type UserModel struct {
	bun.BaseModel `bun:"table:users"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Name          string    `bun:"name,notnull"`
	Email         string    `bun:"email,notnull,unique"`
	Phone         string    `bun:"phone,notnull,unique"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// CategoryModel groups cards that can be voted on.
type CategoryModel struct {
	bun.BaseModel `bun:"table:categories"`
	ID            int64  `bun:"id,pk,autoincrement"`
	Name          string `bun:"name,notnull,unique"`
	Order         int    `bun:"order,notnull,default:0"`
}

// CardModel is a candidate inside a category.
type CardModel struct {
	bun.BaseModel `bun:"table:cards"`
	ID            int64   `bun:"id,pk,autoincrement"`
	CategoryID    int64   `bun:"category_id,notnull"`
	Title         string  `bun:"title,notnull"`
	Subtitle      *string `bun:"subtitle"`
	ImageURL      string  `bun:"image_url,notnull"`
	Order         int     `bun:"order,notnull,default:0"`
}

// VoteModel is one ballot. A user votes at most once per category.
type VoteModel struct {
	bun.BaseModel `bun:"table:votes"`
	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        int64     `bun:"user_id,notnull,unique:votes_user_category"`
	CategoryID    int64     `bun:"category_id,notnull,unique:votes_user_category"`
	CardID        int64     `bun:"card_id,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
