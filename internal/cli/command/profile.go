package command

import (
	"encoding/json"

	"github.com/urfave/cli/v2"

	"github.com/medpanel/medpanel-go/internal/cli/output"
	"github.com/medpanel/medpanel-go/internal/client/service"
)

// ProfileCommand returns the profile subcommand group.
func ProfileCommand() *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "View and edit your profile",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show your profile",
				Action: withRuntime(showProfile),
			},
			{
				Name:  "update",
				Usage: "Update your profile; omitted fields keep their current value",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Full name"},
					&cli.StringFlag{Name: "phone", Aliases: []string{"p"}, Usage: "Phone number, 08 followed by 8-11 digits"},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address"},
					&cli.StringFlag{Name: "keahlian", Aliases: []string{"k"}, Usage: "Specialty"},
				},
				Action: withRuntime(profileUpdate),
			},
		},
	}
}

// profileTable lays a profile out with the verification badge spelled
// out. Machine formats get the API fields unchanged.
type profileTable struct {
	p *service.Profile
}

func (t profileTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.p)
}

func (t profileTable) Table(wide bool) *output.Table {
	verified := "Not verified"
	if t.p.IsVerified {
		verified = "Verified"
	}
	table := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	if wide {
		table.AddRow("User ID", dash(t.p.UserID.String()))
	}
	table.AddRow("Name", dash(t.p.Name))
	table.AddRow("Email", dash(t.p.Email))
	table.AddRow("Phone", dash(t.p.PhoneNumber))
	table.AddRow("Keahlian", dash(t.p.Keahlian))
	table.AddRow("Status", verified)
	return table
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func profileUpdate(c *cli.Context, rt *Runtime) error {
	if err := requireLogin(c, rt); err != nil {
		return err
	}

	req := service.UpdateProfileRequest{
		Name:        c.String("name"),
		PhoneNumber: c.String("phone"),
		Email:       c.String("email"),
		Keahlian:    c.String("keahlian"),
	}
	if req.Name == "" || req.PhoneNumber == "" || req.Email == "" || req.Keahlian == "" {
		current, err := rt.Profile.Get(c.Context)
		if err != nil {
			return err
		}
		fill(&req.Name, current.Name)
		fill(&req.PhoneNumber, current.PhoneNumber)
		fill(&req.Email, current.Email)
		fill(&req.Keahlian, current.Keahlian)
	}

	msg, err := rt.Profile.Update(c.Context, req)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Profile updated."
	}
	return message(c, msg)
}

func fill(dst *string, current string) {
	if *dst == "" {
		*dst = current
	}
}
