package command

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/medpanel/medpanel-go/internal/cli/output"
	"github.com/medpanel/medpanel-go/internal/client/service"
	"github.com/medpanel/medpanel-go/internal/client/session"
)

// AuthCommand returns the auth subcommand group.
func AuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign out and inspect the current session",
		Subcommands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in and store the session token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Account password (prompted when omitted)",
					},
				},
				Action: withRuntime(authLogin),
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password (prompted when omitted)",
					},
					&cli.StringFlag{
						Name:  "password-confirmation",
						Usage: "Password again (prompted when omitted)",
					},
				},
				Action: withRuntime(authRegister),
			},
			{
				Name:   "logout",
				Usage:  "Log out and forget the stored session",
				Action: withRuntime(authLogout),
			},
			{
				Name:   "whoami",
				Usage:  "Show the logged-in user's profile",
				Action: withRuntime(showProfile),
			},
			{
				Name:   "status",
				Usage:  "Show whether a session is stored locally",
				Action: withRuntime(authStatus),
			},
		},
	}
}

func passwordFlag(c *cli.Context, name, prompt string) (string, error) {
	if v := c.String(name); v != "" {
		return v, nil
	}
	return readPassword(c, prompt)
}

func authLogin(c *cli.Context, rt *Runtime) error {
	password, err := passwordFlag(c, "password", "Password: ")
	if err != nil {
		return err
	}

	res, err := rt.Auth.Login(c.Context, service.LoginRequest{
		Email:    c.String("email"),
		Password: password,
	})
	if err != nil {
		return err
	}

	f, err := outputFormat(c)
	if err != nil {
		return err
	}
	if f != output.FormatTable {
		return render(c, struct {
			Message string              `json:"message"`
			User    service.UserSummary `json:"user"`
		}{res.Message, res.User})
	}

	msg := res.Message
	if msg == "" {
		msg = "Logged in"
	}
	fmt.Fprintln(c.App.Writer, msg)
	return render(c, res.User)
}

func authRegister(c *cli.Context, rt *Runtime) error {
	password, err := passwordFlag(c, "password", "Password: ")
	if err != nil {
		return err
	}
	confirmation, err := passwordFlag(c, "password-confirmation", "Confirm password: ")
	if err != nil {
		return err
	}

	resp, err := rt.Auth.Register(c.Context, service.RegisterRequest{
		Email:                c.String("email"),
		Password:             password,
		PasswordConfirmation: confirmation,
	})
	if err != nil {
		return err
	}

	msg := resp.Message
	if msg == "" {
		msg = "Registered. You can now log in."
	}
	return message(c, msg)
}

func authLogout(c *cli.Context, rt *Runtime) error {
	if err := rt.Auth.Logout(c.Context); err != nil {
		return fmt.Errorf("logged out locally, but the server reported: %w", err)
	}
	return message(c, "Logged out.")
}

func showProfile(c *cli.Context, rt *Runtime) error {
	if err := requireLogin(c, rt); err != nil {
		return err
	}
	profile, err := rt.Profile.Get(c.Context)
	if err != nil {
		return err
	}
	return render(c, profileTable{profile})
}

// authStatus reads only the local store.
func authStatus(c *cli.Context, rt *Runtime) error {
	cred, err := rt.Store.Get(c.Context)
	if err != nil && !errors.Is(err, session.ErrNoCredential) {
		return fmt.Errorf("read session: %w", err)
	}

	var user service.UserSummary
	if cred != nil && len(cred.User) > 0 {
		if err := json.Unmarshal(cred.User, &user); err != nil {
			rt.Logger.Debug("stored user snapshot unreadable", "error", err)
		}
	}

	f, err := outputFormat(c)
	if err != nil {
		return err
	}
	if f != output.FormatTable {
		status := struct {
			LoggedIn bool                 `json:"logged_in"`
			User     *service.UserSummary `json:"user,omitempty"`
		}{LoggedIn: cred != nil}
		if cred != nil {
			status.User = &user
		}
		return render(c, status)
	}

	switch {
	case cred == nil:
		fmt.Fprintln(c.App.Writer, "Not logged in.")
	case user.Email != "":
		fmt.Fprintf(c.App.Writer, "Logged in as %s.\n", user.Email)
	default:
		fmt.Fprintln(c.App.Writer, "Logged in.")
	}
	return nil
}

// WhatsAppCommand returns the whatsapp subcommand group.
func WhatsAppCommand() *cli.Command {
	return &cli.Command{
		Name:    "whatsapp",
		Aliases: []string{"wa"},
		Usage:   "Link a WhatsApp account for patient messaging",
		Subcommands: []*cli.Command{
			{
				Name:   "qr",
				Usage:  "Fetch the QR payload to scan",
				Action: withRuntime(whatsappQR),
			},
			{
				Name:   "pair",
				Usage:  "Fetch a pairing code",
				Action: withRuntime(whatsappPair),
			},
		},
	}
}

func whatsappQR(c *cli.Context, rt *Runtime) error {
	if err := requireLogin(c, rt); err != nil {
		return err
	}
	qr, err := rt.Auth.WhatsAppQR(c.Context)
	if err != nil {
		return err
	}
	return printValue(c, "qr", qr)
}

func whatsappPair(c *cli.Context, rt *Runtime) error {
	if err := requireLogin(c, rt); err != nil {
		return err
	}
	code, err := rt.Auth.WhatsAppPairingCode(c.Context)
	if err != nil {
		return err
	}
	return printValue(c, "code", code)
}

// printValue prints a bare value for tables and a one-key object otherwise.
func printValue(c *cli.Context, key, value string) error {
	f, err := outputFormat(c)
	if err != nil {
		return err
	}
	if f == output.FormatTable {
		_, err := fmt.Fprintln(c.App.Writer, value)
		return err
	}
	return render(c, map[string]string{key: value})
}
