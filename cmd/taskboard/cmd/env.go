package cmd

import (
	"fmt"

	"github.com/good-yellow-bee/taskboard/internal/invites"
	"github.com/good-yellow-bee/taskboard/internal/profiles"
	"github.com/good-yellow-bee/taskboard/internal/projects"
	"github.com/good-yellow-bee/taskboard/internal/remote"
	"github.com/good-yellow-bee/taskboard/internal/session"
	"github.com/good-yellow-bee/taskboard/internal/statecache"
	"github.com/good-yellow-bee/taskboard/internal/tasks"
)

// appEnv wires the managers for one CLI invocation. Construction order
// fixes the observer propagation order: session changes reach the
// project manager before the task manager.
type appEnv struct {
	cfg      *Config
	cache    *statecache.Cache
	client   *remote.Client
	session  *session.Provider
	invites  *invites.Service
	projects *projects.Manager
	tasks    *tasks.Manager
	profiles *profiles.Manager
}

func newEnv() (*appEnv, error) {
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	cache, err := statecache.Open(cfg.State.Path)
	if err != nil {
		return nil, err
	}

	client, err := remote.New(remote.Config{
		BaseURL: cfg.Store.URL,
		APIKey:  cfg.Store.AnonKey,
		Timeout: cfg.Store.Timeout,
	})
	if err != nil {
		cache.Close()
		return nil, err
	}

	// Resume a cached session if one exists. An unreadable token just
	// means signed out.
	if token, ok, err := cache.Get(statecache.KeyAccessToken); err == nil && ok {
		if err := client.SetToken(token); err != nil {
			PrintVerbose("discarding unreadable cached session: %v", err)
			cache.Delete(statecache.KeyAccessToken)
		}
	}

	sess := session.NewProvider(client)
	inv := invites.NewService(client, sess)
	proj := projects.NewManager(client, sess, inv)
	tsk := tasks.NewManager(client, sess, proj)
	prof := profiles.NewManager(client, sess)

	return &appEnv{
		cfg:      cfg,
		cache:    cache,
		client:   client,
		session:  sess,
		invites:  inv,
		projects: proj,
		tasks:    tsk,
		profiles: prof,
	}, nil
}

func (e *appEnv) Close() {
	e.cache.Close()
}

// requireSession fails fast for commands that need an identity.
func (e *appEnv) requireSession() error {
	if e.session.Current() == nil {
		return fmt.Errorf("not signed in (run: taskboard login <email>)")
	}
	return nil
}

// selectedProject returns the persisted current project id, if any.
func (e *appEnv) selectedProject() string {
	id, ok, err := e.cache.Get(statecache.KeyCurrentProject)
	if err != nil || !ok {
		return ""
	}
	return id
}
