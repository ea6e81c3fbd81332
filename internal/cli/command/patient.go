package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/medpanel/medpanel-go/internal/cli/output"
	"github.com/medpanel/medpanel-go/internal/client/service"
)

// PatientCommand returns the patient subcommand group.
func PatientCommand() *cli.Command {
	return &cli.Command{
		Name:    "patient",
		Aliases: []string{"patients", "pt"},
		Usage:   "Manage your patients",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List patients, eight per page",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "page",
						Value: 1,
						Usage: "Page number",
					},
				},
				Action: withRuntime(patientList),
			},
			{
				Name:   "add",
				Usage:  "Add a patient",
				Flags:  patientFlags(),
				Action: withRuntime(patientAdd),
			},
			{
				Name:      "update",
				Usage:     "Replace a patient record",
				ArgsUsage: "[flags] PASIEN_ID",
				Flags: append(patientFlags(), &cli.StringFlag{
					Name:  "id",
					Usage: "Patient ID (instead of the argument)",
				}),
				Action: withRuntime(patientUpdate),
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a patient",
				ArgsUsage: "[flags] PASIEN_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Patient ID (instead of the argument)",
					},
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Skip confirmation",
					},
				},
				Action: withRuntime(patientDelete),
			},
		},
	}
}

func patientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Patient name"},
		&cli.StringFlag{Name: "gender", Aliases: []string{"g"}, Usage: "Laki-laki/Male or Perempuan/Female"},
		&cli.StringFlag{Name: "phone", Aliases: []string{"p"}, Usage: "Phone number"},
		&cli.StringFlag{Name: "discharge-date", Aliases: []string{"d"}, Usage: "Discharge date, YYYY-MM-DD"},
	}
}

// patientPage is one page of the patient list.
type patientPage struct {
	output.Page[service.Patient]
}

func (p patientPage) MarshalJSON() ([]byte, error) {
	items := p.Items
	if items == nil {
		items = []service.Patient{}
	}
	return json.Marshal(struct {
		Page     int               `json:"page"`
		Pages    int               `json:"pages"`
		Total    int               `json:"total"`
		Patients []service.Patient `json:"patients"`
	}{p.Number, p.Pages, p.Total, items})
}

func (p patientPage) Table(wide bool) *output.Table {
	t := &output.Table{Headers: []string{"ID", "NAME", "GENDER", "PHONE", "DISCHARGE DATE"}}
	if wide {
		t.Headers = append(t.Headers, "STATUS", "RESPONSE")
	}
	for _, pt := range p.Items {
		row := []string{
			dash(pt.PasienID.String()),
			dash(pt.Nama),
			service.GenderLabel(pt.Gender),
			dash(pt.PhoneNumber),
			dash(pt.DischargeDate),
		}
		if wide {
			status := "pending"
			if pt.Status {
				status = "sent"
			}
			row = append(row, status, dash(pt.Response))
		}
		t.AddRow(row...)
	}
	return t
}

func patientList(c *cli.Context, rt *Runtime) error {
	if err := requireLogin(c, rt); err != nil {
		return err
	}
	patients, err := rt.Patients.List(c.Context)
	if err != nil {
		return err
	}

	page := patientPage{output.Paginate(patients, c.Int("page"), output.DefaultPageSize)}

	f, err := outputFormat(c)
	if err != nil {
		return err
	}
	if f != output.FormatTable {
		return render(c, page)
	}

	if page.Total == 0 {
		_, err := fmt.Fprintln(c.App.Writer, "No patients yet.")
		return err
	}
	if err := render(c, page); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "\n%s\n", page.Footer("patients"))
	return err
}

// patientForm reads and checks the add/update flags. Every field is
// required and the gender is normalized to the API value.
func patientForm(c *cli.Context) (name, gender, phone, date string, err error) {
	name = c.String("name")
	gender = c.String("gender")
	phone = c.String("phone")
	date = c.String("discharge-date")
	if err := service.ValidatePatient(name, gender, phone, date); err != nil {
		return "", "", "", "", err
	}
	return name, service.NormalizeGender(gender), phone, date, nil
}

func patientAdd(c *cli.Context, rt *Runtime) error {
	if err := requireLogin(c, rt); err != nil {
		return err
	}
	name, gender, phone, date, err := patientForm(c)
	if err != nil {
		return err
	}

	msg, err := rt.Patients.Add(c.Context, service.AddPatientRequest{
		Name:          name,
		Gender:        gender,
		PhoneNumber:   phone,
		DischargeDate: date,
	})
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Patient added."
	}
	return message(c, msg)
}

func patientID(c *cli.Context) (string, error) {
	if id := c.String("id"); id != "" {
		return id, nil
	}
	if c.NArg() > 0 {
		return c.Args().First(), nil
	}
	return "", errors.New("patient ID required")
}

func patientUpdate(c *cli.Context, rt *Runtime) error {
	if err := requireLogin(c, rt); err != nil {
		return err
	}
	id, err := patientID(c)
	if err != nil {
		return err
	}
	name, gender, phone, date, err := patientForm(c)
	if err != nil {
		return err
	}

	msg, err := rt.Patients.Update(c.Context, service.UpdatePatientRequest{
		PasienID:      id,
		Name:          name,
		Gender:        gender,
		PhoneNumber:   phone,
		DischargeDate: date,
	})
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Patient updated."
	}
	return message(c, msg)
}

func patientDelete(c *cli.Context, rt *Runtime) error {
	if err := requireLogin(c, rt); err != nil {
		return err
	}
	id, err := patientID(c)
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		ok, err := confirm(c, "Delete patient "+strconv.Quote(id)+"?")
		if err != nil {
			return err
		}
		if !ok {
			return message(c, "Cancelled.")
		}
	}

	msg, err := rt.Patients.Delete(c.Context, id)
	if err != nil {
		return err
	}
	if msg == "" {
		msg = "Patient deleted."
	}
	return message(c, msg)
}
