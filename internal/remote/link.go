package remote

import (
	"github.com/jinconfig/jin/internal/jinconfig"
	"github.com/jinconfig/jin/internal/jinerr"
)

// Link validates url, proves reachability, and records it as the named
// remote in cfg, replacing any existing entry only if force is set.
// Mirrors the teacher's AddRemote but against jinconfig.Config instead
// of a hand-rolled ini-ish file.
func Link(cfg *jinconfig.Config, name, rawURL string, force bool) error {
	if _, exists := cfg.GetRemote(name); exists && !force {
		return &jinerr.AlreadyExistsError{Kind: "remote", Name: name}
	}
	client, err := NewClient(rawURL, nil)
	if err != nil {
		return err
	}
	if err := client.Ping(); err != nil {
		return err
	}
	cfg.SetRemote(name, jinconfig.Remote{URL: rawURL})
	return cfg.Save()
}
