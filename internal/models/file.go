package models

import "time"

// StoredFile — метаданные загруженного файла; сам файл лежит на диске
// под files.root_dir с именем-uuid.
type StoredFile struct {
	ID        string    `json:"id"`
	OwnerID   int       `json:"owner_id"`
	Name      string    `json:"name"` // оригинальное имя
	Ext       string    `json:"ext"`
	Size      int64     `json:"size"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}
