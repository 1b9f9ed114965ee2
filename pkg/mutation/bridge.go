// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/klnyzzz33/api-fuzzing-test/pkg/osutil"
)

// BridgeMessage tells the test harness which input to check against
// which expected output.
type BridgeMessage struct {
	OriginalInput  string `json:"ORIGINAL_SENTENCE"`
	MutatedInput   string `json:"MUTATED_SENTENCE"`
	ExpectedOutput string `json:"EXPECTED_OUTPUT"`
}

// Bridge is a single slot: every Publish overwrites the previous message.
type Bridge interface {
	Publish(msg *BridgeMessage) error
	Load() (*BridgeMessage, error)
	Clear() error
}

var ErrEmptyBridge = errors.New("mutation bridge is empty")

// FileBridge keeps the message in a JSON file read by an external harness.
type FileBridge struct {
	Path string
}

func (b *FileBridge) Publish(msg *BridgeMessage) error {
	data, err := json.MarshalIndent(msg, "", "\t")
	if err != nil {
		return err
	}
	if err := osutil.WriteFile(b.Path, data); err != nil {
		return fmt.Errorf("failed to write mutation bridge: %w", err)
	}
	return nil
}

func (b *FileBridge) Load() (*BridgeMessage, error) {
	return ReadBridge(b.Path)
}

func (b *FileBridge) Clear() error {
	return osutil.WriteFile(b.Path, nil)
}

// ReadBridge parses a bridge file. An empty file yields ErrEmptyBridge.
func ReadBridge(path string) (*BridgeMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mutation bridge: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyBridge
	}
	msg := new(BridgeMessage)
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to parse mutation bridge %v: %w", path, err)
	}
	return msg, nil
}

// MemBridge is an in-process bridge.
type MemBridge struct {
	mu  sync.Mutex
	msg *BridgeMessage
}

func (b *MemBridge) Publish(msg *BridgeMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *msg
	b.msg = &cp
	return nil
}

func (b *MemBridge) Load() (*BridgeMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.msg == nil {
		return nil, ErrEmptyBridge
	}
	cp := *b.msg
	return &cp, nil
}

func (b *MemBridge) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msg = nil
	return nil
}
