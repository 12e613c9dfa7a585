package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"clipshift/internal/fileutil"
	"clipshift/internal/logging"
	"clipshift/internal/queue"
	"clipshift/internal/services"
)

// DefaultName is the profile applied when an item names none. It always
// resolves, even when no profile file exists.
const DefaultName = "default"

// Profile bundles publishing defaults under a name.
type Profile struct {
	Name      string                 `json:"name"`
	Metadata  queue.Metadata         `json:"metadata"`
	Transform queue.TransformOptions `json:"transform"`
	Transport queue.TransportOptions `json:"transport"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Store provides thread-safe access to the profile file.
type Store struct {
	path     string
	logger   *slog.Logger
	mu       sync.RWMutex
	profiles map[string]Profile // keyed by lowercase name
}

// NewStore creates a profile store. If path is empty the store only resolves
// the built-in default profile.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "profiles")

	s := &Store{
		path:     path,
		logger:   logger,
		profiles: make(map[string]Profile),
	}

	if path == "" {
		return s
	}

	if err := s.load(); err != nil {
		logger.Warn("failed to load profile store",
			logging.String(logging.FieldEventType, "profiles_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "profile store will start empty"))
	}

	return s
}

// Get resolves a profile by name. The default profile resolves to an empty
// preset when it has never been saved.
func (s *Store) Get(name string) (Profile, error) {
	key := normalizeName(name)
	if key == "" {
		key = DefaultName
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if profile, ok := s.profiles[key]; ok {
		return profile, nil
	}
	if key == DefaultName {
		return Profile{Name: DefaultName}, nil
	}
	return Profile{}, services.Wrap(services.ErrValidation, "profiles", "get", fmt.Sprintf("profile %q not found", name), nil)
}

// Save creates or replaces a named profile and persists the store.
func (s *Store) Save(profile Profile) error {
	key := normalizeName(profile.Name)
	if key == "" {
		return services.Wrap(services.ErrValidation, "profiles", "save", "profile name is empty", nil)
	}
	profile.Name = key
	profile.Metadata.Tags = queue.NormalizeTags(profile.Metadata.Tags)
	profile.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[key] = profile
	if err := s.save(); err != nil {
		return fmt.Errorf("persist profiles: %w", err)
	}

	s.logger.Debug("saved profile", logging.String("profile", key))
	return nil
}

// Delete removes a named profile. The default profile cannot be deleted.
func (s *Store) Delete(name string) error {
	key := normalizeName(name)
	if key == DefaultName {
		return services.Wrap(services.ErrValidation, "profiles", "delete", "the default profile cannot be deleted", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[key]; !ok {
		return services.Wrap(services.ErrValidation, "profiles", "delete", fmt.Sprintf("profile %q not found", name), nil)
	}
	delete(s.profiles, key)
	if err := s.save(); err != nil {
		return fmt.Errorf("persist profiles: %w", err)
	}

	s.logger.Debug("deleted profile", logging.String("profile", key))
	return nil
}

// Duplicate copies an existing profile under a new name.
func (s *Store) Duplicate(source, target string) error {
	profile, err := s.Get(source)
	if err != nil {
		return err
	}
	targetKey := normalizeName(target)
	if targetKey == "" {
		return services.Wrap(services.ErrValidation, "profiles", "duplicate", "target profile name is empty", nil)
	}

	s.mu.RLock()
	_, exists := s.profiles[targetKey]
	s.mu.RUnlock()
	if exists {
		return services.Wrap(services.ErrValidation, "profiles", "duplicate", fmt.Sprintf("profile %q already exists", target), nil)
	}

	profile.Name = targetKey
	return s.Save(profile)
}

// List returns all saved profiles ordered by name. The implicit default is
// included only once it has been saved.
func (s *Store) List() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]Profile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		profiles = append(profiles, profile)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles
}

// Export writes a single profile to a standalone JSON file.
func (s *Store) Export(name, path string) error {
	profile, err := s.Get(name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := fileutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profile export: %w", err)
	}
	return nil
}

// Import reads a profile from a standalone JSON file and saves it, replacing
// any profile with the same name.
func (s *Store) Import(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile import: %w", err)
	}
	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return Profile{}, services.Wrap(services.ErrValidation, "profiles", "import", "profile file is not valid JSON", err)
	}
	if normalizeName(profile.Name) == "" {
		return Profile{}, services.Wrap(services.ErrValidation, "profiles", "import", "imported profile has no name", nil)
	}
	if err := s.Save(profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Apply fills empty item options from the named profile. Explicit item values
// always win over profile defaults.
func (s *Store) Apply(name string, params *queue.NewItemParams) error {
	profile, err := s.Get(name)
	if err != nil {
		return err
	}

	meta := &params.Metadata
	if meta.Privacy == "" {
		meta.Privacy = profile.Metadata.Privacy
	}
	if meta.Category == "" {
		meta.Category = profile.Metadata.Category
	}
	if meta.Language == "" {
		meta.Language = profile.Metadata.Language
	}
	if meta.License == "" {
		meta.License = profile.Metadata.License
	}
	if meta.MadeForKids == nil {
		meta.MadeForKids = profile.Metadata.MadeForKids
	}
	if meta.Embeddable == nil {
		meta.Embeddable = profile.Metadata.Embeddable
	}
	if len(profile.Metadata.Tags) > 0 {
		meta.Tags = queue.NormalizeTags(append(append([]string{}, meta.Tags...), profile.Metadata.Tags...))
	}
	if len(meta.Playlists) == 0 {
		meta.Playlists = append([]string{}, profile.Metadata.Playlists...)
	}
	if !params.Transform.Requested() && params.Transform.Mode == queue.TransformNone {
		params.Transform = profile.Transform
	}
	if params.Transport == (queue.TransportOptions{}) {
		params.Transport = profile.Transport
	}
	if params.Transport.Profile == "" {
		params.Transport.Profile = profile.Transport.Profile
	}
	return nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read profile file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("parse profile file: %w", err)
	}

	s.profiles = make(map[string]Profile, len(profiles))
	for _, profile := range profiles {
		key := normalizeName(profile.Name)
		if key == "" {
			continue
		}
		profile.Name = key
		s.profiles[key] = profile
	}

	s.logger.Debug("loaded profile store",
		logging.Int("profile_count", len(s.profiles)),
		logging.String("path", s.path))
	return nil
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	profiles := make([]Profile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		profiles = append(profiles, profile)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})

	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}
	if err := fileutil.AtomicWriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write profile file: %w", err)
	}
	return nil
}
