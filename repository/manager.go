// Package repository keeps a local record of deployed counters so later
// commands can refer to them without retyping addresses.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/govm-net/counter/core"
)

var (
	ErrExists        = errors.New("deployment already exists")
	ErrNoDeployments = errors.New("no deployments recorded")
)

const (
	codeFile     = "code.wasm"
	metadataFile = "metadata.json"
)

// Manager stores one directory per deployed contract
type Manager struct {
	rootDir string
}

// Deployment describes a deployed counter
type Deployment struct {
	Address     core.Address `json:"address"`
	ID          int64        `json:"id"`
	CodeHash    core.Hash    `json:"code_hash"`
	MessageHash core.Hash    `json:"message_hash"`
	Endpoint    string       `json:"endpoint,omitempty"`
	DeployTime  time.Time    `json:"deploy_time"`
}

// NewManager creates the root directory if needed
func NewManager(rootDir string) (*Manager, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &Manager{rootDir: rootDir}, nil
}

// RegisterDeployment records d with its code. Records are immutable; a second
// registration for the same address fails with ErrExists.
func (m *Manager) RegisterDeployment(d *Deployment, code []byte) error {
	dir := m.getDeploymentDir(d.Address)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, d.Address)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check deployment directory: %w", err)
	}

	record := *d
	record.CodeHash = core.GetHash(code)
	if record.DeployTime.IsZero() {
		record.DeployTime = time.Now()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create deployment directory: %w", err)
	}
	if err := m.saveDeploymentFiles(dir, &record, code); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("failed to save deployment files: %w", err)
	}
	return nil
}

func (m *Manager) saveDeploymentFiles(dir string, d *Deployment, code []byte) error {
	if err := os.WriteFile(filepath.Join(dir, codeFile), code, 0644); err != nil {
		return fmt.Errorf("failed to save code: %w", err)
	}
	metadata, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), metadata, 0644); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// GetDeployment loads the record for address
func (m *Manager) GetDeployment(address core.Address) (*Deployment, error) {
	data, err := os.ReadFile(filepath.Join(m.getDeploymentDir(address), metadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	var d Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &d, nil
}

// GetCode returns the code recorded with the deployment
func (m *Manager) GetCode(address core.Address) ([]byte, error) {
	code, err := os.ReadFile(filepath.Join(m.getDeploymentDir(address), codeFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read code: %w", err)
	}
	return code, nil
}

// List returns every record, oldest first
func (m *Manager) List() ([]*Deployment, error) {
	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory: %w", err)
	}

	var out []*Deployment
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		addr, err := core.ParseAddress(entry.Name())
		if err != nil {
			continue
		}
		d, err := m.GetDeployment(addr)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DeployTime.Before(out[j].DeployTime)
	})
	return out, nil
}

// Latest returns the most recent record
func (m *Manager) Latest() (*Deployment, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNoDeployments
	}
	return all[len(all)-1], nil
}

func (m *Manager) getDeploymentDir(address core.Address) string {
	return filepath.Join(m.rootDir, address.String())
}
