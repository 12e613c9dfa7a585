package daemon

import (
	"clipshift/internal/api"
	"clipshift/internal/profiles"
)

// Profiles lists stored profiles sorted by name.
func (d *Daemon) Profiles() []api.Profile {
	return api.FromProfiles(d.profiles.List())
}

// ProfileGet returns one stored profile with its full field set.
func (d *Daemon) ProfileGet(name string) (profiles.Profile, error) {
	return d.profiles.Get(name)
}

// ProfileSave creates or replaces a profile.
func (d *Daemon) ProfileSave(profile profiles.Profile) error {
	return d.profiles.Save(profile)
}

// ProfileDelete removes a stored profile.
func (d *Daemon) ProfileDelete(name string) error {
	return d.profiles.Delete(name)
}

// ProfileDuplicate copies an existing profile under a new name.
func (d *Daemon) ProfileDuplicate(source, target string) error {
	return d.profiles.Duplicate(source, target)
}

// ProfileExport writes one profile to a JSON file.
func (d *Daemon) ProfileExport(name, path string) error {
	return d.profiles.Export(name, path)
}

// ProfileImport reads a profile from a JSON file and stores it.
func (d *Daemon) ProfileImport(path string) (profiles.Profile, error) {
	return d.profiles.Import(path)
}
