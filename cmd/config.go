package cmd

import (
	"fmt"
	"strings"

	"github.com/jinconfig/jin/internal/jinerr"
)

func init() {
	configCmd := NewCommand("config <get|set|list> [key] [value]", "Inspect or edit the global jin configuration", runConfig, 1)
	rootCmd.AddCommand(configCmd)
}

func runConfig(app *App, args []string) error {
	switch args[0] {
	case "list":
		return configList(app)
	case "get":
		if len(args) != 2 {
			return &jinerr.ValidationError{Rule: "config-get-requires-key", Input: fmt.Sprint(args)}
		}
		return configGet(app, args[1])
	case "set":
		if len(args) != 3 {
			return &jinerr.ValidationError{Rule: "config-set-requires-key-value", Input: fmt.Sprint(args)}
		}
		return configSet(app, args[1], args[2])
	default:
		return &jinerr.ValidationError{Rule: "config-unknown-subcommand", Input: args[0]}
	}
}

func configList(app *App) error {
	fmt.Printf("user.name = %s\n", app.Config.User.Name)
	fmt.Printf("user.email = %s\n", app.Config.User.Email)
	fmt.Printf("fetchOnInit = %v\n", app.Config.FetchOnInit)
	for name, remote := range app.Config.Remotes {
		fmt.Printf("remote.%s.url = %s\n", name, remote.URL)
	}
	return nil
}

func configGet(app *App, key string) error {
	switch key {
	case "user.name":
		fmt.Println(app.Config.User.Name)
	case "user.email":
		fmt.Println(app.Config.User.Email)
	case "fetchOnInit":
		fmt.Println(app.Config.FetchOnInit)
	default:
		if name, field, ok := splitRemoteKey(key); ok {
			remote, exists := app.Config.GetRemote(name)
			if !exists {
				return &jinerr.NotFoundError{Kind: "remote", Name: name}
			}
			switch field {
			case "url":
				fmt.Println(remote.URL)
			default:
				return &jinerr.ValidationError{Rule: "config-unknown-key", Input: key}
			}
			return nil
		}
		return &jinerr.ValidationError{Rule: "config-unknown-key", Input: key}
	}
	return nil
}

func configSet(app *App, key, value string) error {
	switch key {
	case "user.name":
		app.Config.User.Name = value
	case "user.email":
		app.Config.User.Email = value
	case "fetchOnInit":
		app.Config.FetchOnInit = value == "true"
	default:
		if name, field, ok := splitRemoteKey(key); ok && field == "url" {
			remote, _ := app.Config.GetRemote(name)
			remote.URL = value
			app.Config.SetRemote(name, remote)
		} else {
			return &jinerr.ValidationError{Rule: "config-unknown-key", Input: key}
		}
	}
	return app.Config.Save()
}

func splitRemoteKey(key string) (name, field string, ok bool) {
	if !strings.HasPrefix(key, "remote.") {
		return "", "", false
	}
	rest := strings.TrimPrefix(key, "remote.")
	idx := strings.LastIndex(rest, ".")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}
