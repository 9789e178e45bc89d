package models

import "time"

// Translation is a text the user translated, counted per exact language pair
type Translation struct {
	ID             string    `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	SourceText     string    `json:"source_text" db:"source_text"`
	TargetText     string    `json:"target_text" db:"target_text"`
	SourceLang     string    `json:"source_lang" db:"source_lang"`
	TargetLang     string    `json:"target_lang" db:"target_lang"`
	Frequency      int       `json:"frequency" db:"frequency"` // times this exact pair was produced
	LastTranslated time.Time `json:"last_translated" db:"last_translated"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
