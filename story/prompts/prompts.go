// Package prompts manages named system prompts persisted as a JSON file.
package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultName is the protected built-in prompt.
const DefaultName = "Narrative Writer"

// DefaultContent is the built-in system prompt used until the user saves
// their own.
const DefaultContent = `You are a creative writing assistant. Your goal is to collaborate with the user to write a story.
Generate only the requested narrative content based on the user's input and the preceding story text.
Do NOT include any meta-commentary, apologies, questions, or explanations about your process unless specifically asked.
Focus on producing publication-ready prose in the established style and tone.
If you need to think or plan, use <think>...</think> tags. These tags will be hidden from the user.`

var (
	// ErrUnknownPrompt is returned for a name with no stored prompt.
	ErrUnknownPrompt = errors.New("prompts: prompt not found")
	// ErrProtectedPrompt is returned when deleting the default prompt.
	ErrProtectedPrompt = errors.New("prompts: default prompt cannot be deleted")
)

// Prompt is a stored system prompt with bookkeeping metadata.
type Prompt struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}

type filePayload struct {
	Active  string            `json:"active_prompt"`
	Prompts map[string]Prompt `json:"prompts"`
}

// Manager loads, saves, and selects system prompts backed by a JSON file.
type Manager struct {
	path string

	mu      sync.Mutex
	active  string
	prompts map[string]Prompt
}

// NewManager opens the prompt file at path, creating it with the default
// prompt when missing or unreadable.
func NewManager(path string) (*Manager, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("prompts: path is required")
	}
	m := &Manager{path: path}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("prompts: read %s: %w", m.path, err)
		}
		m.resetToDefault()
		return m.saveLocked()
	}

	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Prompts == nil || payload.Active == "" {
		// Corrupt or malformed file: fall back to the default set.
		m.resetToDefault()
		return m.saveLocked()
	}

	m.prompts = payload.Prompts
	m.active = payload.Active
	if _, ok := m.prompts[m.active]; !ok {
		m.ensureDefault()
		m.active = DefaultName
		return m.saveLocked()
	}
	return nil
}

func (m *Manager) resetToDefault() {
	m.prompts = map[string]Prompt{}
	m.ensureDefault()
	m.active = DefaultName
}

func (m *Manager) ensureDefault() {
	if _, ok := m.prompts[DefaultName]; ok {
		return
	}
	now := time.Now()
	m.prompts[DefaultName] = Prompt{
		Content:   DefaultContent,
		CreatedAt: now,
		LastUsed:  now,
	}
}

// Names returns the stored prompt names, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.prompts))
	for name := range m.prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Active returns the active prompt name.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// ActiveContent returns the content of the active prompt.
func (m *Manager) ActiveContent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.prompts[m.active]; ok {
		return p.Content
	}
	return DefaultContent
}

// Get returns a stored prompt by name.
func (m *Manager) Get(name string) (Prompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[name]
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %q", ErrUnknownPrompt, name)
	}
	return p, nil
}

// SetActive selects a stored prompt and persists the selection.
func (m *Manager) SetActive(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prompts[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPrompt, name)
	}
	p.LastUsed = time.Now()
	m.prompts[name] = p
	m.active = name
	return m.saveLocked()
}

// Save creates or updates a named prompt and persists the file.
func (m *Manager) Save(name, content string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("prompts: prompt name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	p, ok := m.prompts[name]
	if !ok {
		p = Prompt{CreatedAt: now}
	}
	p.Content = content
	p.LastUsed = now
	m.prompts[name] = p
	return m.saveLocked()
}

// Delete removes a stored prompt. Deleting the active prompt resets the
// selection to the default; the default itself is protected.
func (m *Manager) Delete(name string) error {
	if name == DefaultName {
		return ErrProtectedPrompt
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.prompts[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPrompt, name)
	}
	delete(m.prompts, name)
	if m.active == name {
		m.ensureDefault()
		m.active = DefaultName
	}
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	payload := filePayload{Active: m.active, Prompts: m.prompts}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmpFile, err := os.CreateTemp(dir, filepath.Base(m.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, m.path); err == nil {
		return nil
	}
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmp, m.path)
}
