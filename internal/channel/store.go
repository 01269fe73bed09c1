package channel

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatproxy/internal/apperrors"
)

var ErrNotFound = errors.New("channel not found")

// Store is the core-facing persistence boundary of spec.md §4.2/§4.10.
// FindByCustomKey is the only method the dispatch path calls;
// Upsert/Delete/List exist for the out-of-scope admin collaborator but
// live here because they share the same gorm model and cipher.
type Store struct {
	db     *gorm.DB
	cipher *credentialCipher
}

// Open mirrors the teacher's database.Manager construction: one gorm.DB,
// auto-migrated against the Channel model. dbType selects the dialect
// spec.md §6's DATABASE_TYPE names: "sqlite" (gorm.io/driver/sqlite, the
// default) or "mysql" (gorm.io/driver/mysql, dsn in driver DSN form).
func Open(dbType, dsn string, encryptionKey string, maxConns int) (*Store, error) {
	var dialector gorm.Dialector
	switch dbType {
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open channel store: %w", err)
	}
	if err := db.AutoMigrate(&Channel{}); err != nil {
		return nil, fmt.Errorf("migrate channel store: %w", err)
	}
	if maxConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("access channel store sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(maxConns)
	}
	c, err := newCredentialCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("init channel store cipher: %w", err)
	}
	return &Store{db: db, cipher: c}, nil
}

// FindByCustomKey implements resolve(). Candidate keys are compared with
// subtle.ConstantTimeCompare rather than left to SQL equality.
func (s *Store) FindByCustomKey(customKey string) (*Channel, error) {
	var candidates []Channel
	if err := s.db.Where("enabled = ?", true).Find(&candidates).Error; err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("query channels: %w", err))
	}

	var match *Channel
	for i := range candidates {
		if subtle.ConstantTimeCompare([]byte(candidates[i].CustomKey), []byte(customKey)) == 1 {
			match = &candidates[i]
		}
	}
	if match == nil {
		var disabled int64
		s.db.Model(&Channel{}).Where("custom_key = ? AND enabled = ?", customKey, false).Count(&disabled)
		if disabled > 0 {
			return nil, apperrors.NewChannelDisabled(customKey)
		}
		return nil, apperrors.NewAuthUnknown()
	}

	plaintext, err := s.cipher.Decrypt(match.EncryptedCredential)
	if err != nil {
		return nil, apperrors.NewInternal(fmt.Errorf("decrypt channel credential: %w", err))
	}
	match.Credential = plaintext
	return match, nil
}

// Upsert persists ch, encrypting plaintextCredential if non-empty
// (an empty value leaves the existing encrypted credential untouched).
func (s *Store) Upsert(ch *Channel, plaintextCredential string) error {
	if plaintextCredential != "" {
		enc, err := s.cipher.Encrypt(plaintextCredential)
		if err != nil {
			return fmt.Errorf("encrypt credential: %w", err)
		}
		ch.EncryptedCredential = enc
	}
	return s.db.Save(ch).Error
}

func (s *Store) Delete(id string) error {
	return s.db.Delete(&Channel{}, "id = ?", id).Error
}

func (s *Store) List() ([]Channel, error) {
	var chs []Channel
	if err := s.db.Find(&chs).Error; err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return chs, nil
}
