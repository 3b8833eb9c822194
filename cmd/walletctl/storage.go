package main

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/statewire/walletcore/pkg/sign"
)

// Store keeps walletctl's local state: named private keys and known
// chain RPC endpoints.
type Store struct {
	db *gorm.DB
}

func OpenStore(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&KeyDTO{}, &EndpointDTO{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return &Store{db: db}, nil
}

type KeyDTO struct {
	Address    string `gorm:"column:address;primaryKey"`
	Name       string `gorm:"column:name;not null;unique"`
	PrivateKey string `gorm:"column:private_key;not null;unique"`
}

// AddKey validates the key material before storing it; the derived
// address becomes the primary key.
func (s *Store) AddKey(name, privateKeyHex string) (*KeyDTO, error) {
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}
	signer, err := sign.NewEthereumSigner(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}

	dto := KeyDTO{
		Address:    signer.Address(),
		Name:       name,
		PrivateKey: privateKeyHex,
	}
	if err := s.db.Create(&dto).Error; err != nil {
		return nil, fmt.Errorf("failed to store key: %w", err)
	}

	return &dto, nil
}

func (s *Store) GetKeyByName(name string) (*KeyDTO, error) {
	var key KeyDTO
	if err := s.db.Where("name = ?", name).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no key named %q; add one with 'walletctl key add'", name)
		}
		return nil, fmt.Errorf("failed to load key: %w", err)
	}
	return &key, nil
}

func (s *Store) ListKeys() ([]KeyDTO, error) {
	var keys []KeyDTO
	if err := s.db.Order("name ASC").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func (s *Store) DeleteKey(name string) error {
	if err := s.db.Where("name = ?", name).Delete(&KeyDTO{}).Error; err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

type EndpointDTO struct {
	URL        string    `gorm:"column:url;primaryKey"`
	ChainID    uint64    `gorm:"column:chain_id;not null"`
	LastUsedAt time.Time `gorm:"column:last_used_at;not null"`
}

func (s *Store) AddEndpoint(url string, chainID uint64) error {
	if url == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	dto := EndpointDTO{
		URL:        url,
		ChainID:    chainID,
		LastUsedAt: time.Unix(0, 0),
	}
	if err := s.db.Create(&dto).Error; err != nil {
		return fmt.Errorf("failed to store endpoint: %w", err)
	}
	return nil
}

func (s *Store) ListEndpoints() ([]EndpointDTO, error) {
	var endpoints []EndpointDTO
	if err := s.db.Order("chain_id ASC, last_used_at ASC").Find(&endpoints).Error; err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	return endpoints, nil
}

// PickEndpoint returns the least recently used stored endpoint.
func (s *Store) PickEndpoint() (*EndpointDTO, error) {
	var endpoint EndpointDTO
	if err := s.db.Order("last_used_at ASC").First(&endpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no endpoints stored; add one with 'walletctl endpoint add'")
		}
		return nil, fmt.Errorf("failed to pick endpoint: %w", err)
	}
	return &endpoint, nil
}

func (s *Store) TouchEndpoint(url string) error {
	if err := s.db.Model(&EndpointDTO{}).Where("url = ?", url).
		Update("last_used_at", time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("failed to update endpoint usage: %w", err)
	}
	return nil
}
