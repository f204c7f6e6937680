package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/didact-labs/didact/internal/core/domain"
	"github.com/didact-labs/didact/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// promptExt is the file extension of prompt template files.
const promptExt = ".tmpl"

// PromptStore loads prompt templates from user-editable files on disk.
// Each slot lives in <dir>/<slot>.tmpl. Missing files fall back to the
// built-in defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.didact/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".didact", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given slot name.
// On first call, initialises the prompt directory and writes default files.
// Returns domain.ErrNotFound when neither a file nor a default exists,
// which is the case for the optional pre and post slots.
func (s *PromptStore) Load(name string) (string, error) {
	slot := domain.PromptSlot(name)
	if !slot.IsValid() {
		return "", fmt.Errorf("%w: unknown prompt %q", domain.ErrInvalidInput, name)
	}

	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		return builtin(slot)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// No lock held during I/O
	prompt, err := s.loadFromFile(name)
	if errors.Is(err, os.ErrNotExist) {
		return builtin(slot)
	}
	if err != nil {
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Double-check so concurrent loads agree on one value
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

func builtin(slot domain.PromptSlot) (string, error) {
	if prompt := domain.DefaultPromptSet().Get(slot); prompt != "" {
		return prompt, nil
	}
	return "", domain.ErrNotFound
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	defaults := domain.DefaultPromptSet()
	for _, slot := range domain.AllPromptSlots() {
		content := defaults.Get(slot)
		if content == "" {
			continue
		}
		path := filepath.Join(s.promptDir, string(slot)+promptExt)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", slot, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk. Only a single trailing newline
// is removed since template whitespace is significant.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+promptExt))
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// createReadme writes a README file listing each prompt and its variables.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	var b strings.Builder
	b.WriteString("# Didact Prompts\n\n")
	b.WriteString("Each file is a Go text/template used by the answer pipeline.\n")
	b.WriteString("Sprig functions are available. Edit a file to customise it;\n")
	b.WriteString("delete it to restore the built-in default on the next run.\n\n")
	b.WriteString("Create `pre.tmpl` or `post.tmpl` to enable the optional\n")
	b.WriteString("background and post-processing steps.\n\n")
	b.WriteString("## Variables\n\n")
	for _, slot := range domain.AllPromptSlots() {
		vars, open := slot.AllowedVariables()
		line := strings.Join(wrapVars(vars), ", ")
		if line == "" {
			line = "none"
		}
		if open {
			line += ", plus any extra summary fields"
		}
		fmt.Fprintf(&b, "- `%s%s`: %s\n", slot, promptExt, line)
	}
	return os.WriteFile(path, []byte(b.String()), 0600)
}

func wrapVars(vars []string) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, "`{{."+v+"}}`")
	}
	return out
}
