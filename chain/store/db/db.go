// Package db implements a sqlite backed chain store using GORM
package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/core"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultDBPath = "./counter.db"
)

type DBBlock struct {
	gorm.Model
	Height  uint64 `gorm:"column:height;not null;unique;index"`
	Time    int64  `gorm:"column:block_time;not null"`
	Hash    string `gorm:"column:block_hash;not null;unique;index;size:64"`
	TxCount int    `gorm:"column:tx_count;not null;default:0"`
}

func (DBBlock) TableName() string {
	return "blocks"
}

type DBTransaction struct {
	gorm.Model
	Hash        string `gorm:"column:tx_hash;not null;unique;index;size:64"`
	MessageHash string `gorm:"column:message_hash;not null;index;size:64"`
	BlockHeight uint64 `gorm:"column:block_height;not null;index"`
	Kind        uint8  `gorm:"column:kind;not null"`
	FromAddress string `gorm:"column:from_address;not null;index;size:40"`
	ToAddress   string `gorm:"column:to_address;not null;index;size:40"`
	Value       uint64 `gorm:"column:value;not null"`
	Deploy      bool   `gorm:"column:deploy;not null"`
	Success     bool   `gorm:"column:success;not null"`
	ExitCode    int    `gorm:"column:exit_code;not null"`
}

func (DBTransaction) TableName() string {
	return "transactions"
}

// DBAccount represents an account and, for contracts, its code and state
type DBAccount struct {
	Address  string `gorm:"column:address;primaryKey;size:40"`
	Balance  uint64 `gorm:"column:balance;not null;default:0"`
	Code     []byte `gorm:"column:code;type:blob"`
	Deployed bool   `gorm:"column:deployed;not null;default:false"`
	StateID  int64  `gorm:"column:state_id;not null;default:0"`
	Counter  int64  `gorm:"column:counter;not null;default:0"`
}

// TableName specifies the table name for DBAccount
func (DBAccount) TableName() string {
	return "accounts"
}

// DBEvent represents an event in the database
type DBEvent struct {
	gorm.Model
	BlockHeight uint64 `gorm:"column:block_height;not null;index"`
	TxHash      string `gorm:"column:tx_hash;not null;index;size:64"`
	Contract    string `gorm:"column:contract_address;not null;index;size:40"`
	EventName   string `gorm:"column:event_name;not null;index;size:255"`
	Fields      []byte `gorm:"column:fields;type:blob;not null"` // JSON encoded fields
}

// TableName specifies the table name for DBEvent
func (DBEvent) TableName() string {
	return "events"
}

// Store implements store.Store on SQLite with GORM
type Store struct {
	db *gorm.DB
}

func init() {
	store.Register(store.DBType, func(params map[string]any) (store.Store, error) {
		dbPath := defaultDBPath
		if path, ok := params["db_path"].(string); ok && path != "" {
			dbPath = path
		}
		return Open(dbPath)
	})
}

// Open opens (creating if needed) the database at dbPath
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initDB(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initDB() error {
	// Auto migrate the schemas with indexes
	err := s.db.AutoMigrate(
		&DBBlock{},
		&DBTransaction{},
		&DBAccount{},
		&DBEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GetAccount implements store.Store
func (s *Store) GetAccount(addr core.Address) (*store.Account, error) {
	var row DBAccount
	result := s.db.Where("address = ?", addr.String()).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}
	return accountFromRow(&row)
}

// PutAccount implements store.Store
func (s *Store) PutAccount(acc *store.Account) error {
	if err := s.db.Save(accountToRow(acc)).Error; err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// Commit implements store.Store
func (s *Store) Commit(c *store.Commit) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, acc := range c.Accounts {
			if err := tx.Save(accountToRow(acc)).Error; err != nil {
				return fmt.Errorf("failed to save account: %w", err)
			}
		}

		if c.Block != nil {
			row := &DBBlock{
				Height:  c.Block.Height,
				Time:    c.Block.Time,
				Hash:    c.Block.Hash.String(),
				TxCount: c.Block.TxCount,
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("failed to save block: %w", err)
			}
		}

		for _, t := range c.Transactions {
			row := &DBTransaction{
				Hash:        t.Hash.String(),
				MessageHash: t.MessageHash.String(),
				BlockHeight: t.Block,
				Kind:        uint8(t.Kind),
				FromAddress: t.From.String(),
				ToAddress:   t.To.String(),
				Value:       uint64(t.Value),
				Deploy:      t.Deploy,
				Success:     t.Success,
				ExitCode:    t.ExitCode,
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("failed to save transaction: %w", err)
			}
		}

		for _, ev := range c.Events {
			data, err := json.Marshal(ev.Fields)
			if err != nil {
				return fmt.Errorf("failed to marshal event fields: %w", err)
			}
			row := &DBEvent{
				BlockHeight: ev.Block,
				TxHash:      ev.TxHash.String(),
				Contract:    ev.Contract.String(),
				EventName:   ev.Name,
				Fields:      data,
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("failed to save event: %w", err)
			}
		}
		return nil
	})
}

// LastBlock implements store.Store
func (s *Store) LastBlock() (*store.Block, error) {
	var row DBBlock
	result := s.db.Order("height desc").First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get block: %w", result.Error)
	}
	return &store.Block{
		Height:  row.Height,
		Time:    row.Time,
		Hash:    core.HashFromString(row.Hash),
		TxCount: row.TxCount,
	}, nil
}

// Transactions implements store.Store
func (s *Store) Transactions(addr core.Address) ([]*store.Transaction, error) {
	var rows []DBTransaction
	result := s.db.Where("from_address = ? OR to_address = ?", addr.String(), addr.String()).
		Order("id asc").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", result.Error)
	}
	return transactionsFromRows(rows)
}

// TransactionsByMessage implements store.Store
func (s *Store) TransactionsByMessage(hash core.Hash) ([]*store.Transaction, error) {
	var rows []DBTransaction
	result := s.db.Where("message_hash = ?", hash.String()).Order("id asc").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", result.Error)
	}
	return transactionsFromRows(rows)
}

// Events implements store.Store
func (s *Store) Events(contract core.Address) ([]*store.Event, error) {
	var rows []DBEvent
	result := s.db.Where("contract_address = ?", contract.String()).Order("id asc").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list events: %w", result.Error)
	}

	out := make([]*store.Event, 0, len(rows))
	for _, row := range rows {
		ev := &store.Event{
			Block:    row.BlockHeight,
			TxHash:   core.HashFromString(row.TxHash),
			Contract: contract,
			Name:     row.EventName,
		}
		if err := json.Unmarshal(row.Fields, &ev.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event fields: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Close releases the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func accountToRow(acc *store.Account) *DBAccount {
	row := &DBAccount{
		Address: acc.Address.String(),
		Balance: uint64(acc.Balance),
		Code:    acc.Code,
	}
	if acc.State != nil {
		row.Deployed = true
		row.StateID = acc.State.ID
		row.Counter = acc.State.Counter
	}
	return row
}

func accountFromRow(row *DBAccount) (*store.Account, error) {
	addr, err := core.ParseAddress(row.Address)
	if err != nil {
		return nil, fmt.Errorf("corrupt account row: %w", err)
	}
	acc := &store.Account{
		Address: addr,
		Balance: core.Coins(row.Balance),
		Code:    row.Code,
	}
	if row.Deployed {
		acc.State = &core.CounterState{ID: row.StateID, Counter: row.Counter}
	}
	return acc, nil
}

func transactionsFromRows(rows []DBTransaction) ([]*store.Transaction, error) {
	out := make([]*store.Transaction, 0, len(rows))
	for _, row := range rows {
		from, err := core.ParseAddress(row.FromAddress)
		if err != nil {
			return nil, fmt.Errorf("corrupt transaction row: %w", err)
		}
		to, err := core.ParseAddress(row.ToAddress)
		if err != nil {
			return nil, fmt.Errorf("corrupt transaction row: %w", err)
		}
		out = append(out, &store.Transaction{
			Hash:        core.HashFromString(row.Hash),
			MessageHash: core.HashFromString(row.MessageHash),
			Block:       row.BlockHeight,
			Kind:        core.MessageKind(row.Kind),
			From:        from,
			To:          to,
			Value:       core.Coins(row.Value),
			Deploy:      row.Deploy,
			Success:     row.Success,
			ExitCode:    row.ExitCode,
		})
	}
	return out, nil
}
