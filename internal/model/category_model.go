package model

import "time"

type Category struct {
	CategoryID    int64      `json:"categoryid"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	ParentID      *int64     `json:"parentcategory"`
	Subcategories []Category `json:"subcategories,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}
