package models

import "time"

// User rows are carried through backups so a snapshot round-trips the whole
// database. The pipeline never authenticates anyone; this is pass-through data.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Backup is the data_backup.json snapshot format. Treated as stable and
// versionless: both the backup and restore paths read/write exactly this shape.
type Backup struct {
	Companies    []Company            `json:"companies"`
	Owners       []Owner              `json:"owners"`
	Transactions []InsiderTransaction `json:"transactions"`
	Users        []User               `json:"users"`
	Politicians  []Politician         `json:"politicians"`
	Trades       []Trade              `json:"trades"`
	Issuers      []Issuer             `json:"issuers"`
	Timestamp    string               `json:"timestamp"`
}
