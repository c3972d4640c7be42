package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"obra/internal"
	"obra/internal/storage"
)

// MailStore keeps raw messages as <sha256>.eml files and indexes them in the database.
type MailStore struct {
	db         *storage.DB
	rawMailDir string
}

func NewMailStore(db *storage.DB, rawMailDir string) *MailStore {
	return &MailStore{db: db, rawMailDir: rawMailDir}
}

func (s *MailStore) Store(msg internal.FetchedMailMessage) (internal.MailRow, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.MailRow{}, err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.MailRow{}, err
		}
	}

	return s.db.UpsertMail(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, "fetched")
}
