package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/garage"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/registration"
)

func newAuthCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Sign in, sign out and register"}

	var email string
	login := &cobra.Command{Use: "login", Short: "Sign in and store the session", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		p := newPrompter(cmd)
		var err error
		if email == "" {
			if email, err = p.line("Email: "); err != nil {
				return err
			}
		}
		password, err := p.secret("Password: ")
		if err != nil {
			return err
		}
		u, err := a.garage.Login(cmd.Context(), garage.Credentials{Email: email, Password: password})
		if err != nil {
			return err
		}
		printf(cmd, "Signed in as %s\n", u.Email)
		return nil
	})}
	login.Flags().StringVar(&email, "email", "", "Account email")

	logout := &cobra.Command{Use: "logout", Short: "Sign out and clear local data", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		if err := a.garage.Logout(cmd.Context()); err != nil {
			return err
		}
		printf(cmd, "Signed out\n")
		return nil
	})}

	whoami := &cobra.Command{Use: "whoami", Short: "Show the signed-in user", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		u, err := a.garage.CurrentUser()
		if err != nil {
			return err
		}
		return printJSON(cmd, u)
	})}

	var reset bool
	register := &cobra.Command{Use: "register", Short: "Register a garage, resuming an unfinished registration", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		flow := a.registration()
		if reset {
			if err := flow.Reset(); err != nil {
				return err
			}
		}
		return runRegistration(cmd, flow, newPrompter(cmd))
	})}
	register.Flags().BoolVar(&reset, "reset", false, "Discard any unfinished registration")

	cmd.AddCommand(login, logout, whoami, register)
	return cmd
}

// runRegistration prompts for each step until the flow completes. Invalid
// input re-prompts the same step; an expired session starts over.
func runRegistration(cmd *cobra.Command, flow *registration.Flow, p *prompter) error {
	ctx := cmd.Context()
	d, err := flow.Current()
	if err != nil {
		return err
	}
	step := registration.Step(d.Step)
	if step != registration.StepPersonal {
		printf(cmd, "Resuming registration for %s\n", d.Email)
	}
	for {
		var next registration.Step
		switch step {
		case registration.StepPersonal:
			var in registration.PersonalInfo
			if in.FullName, err = p.line("Full name: "); err != nil {
				return err
			}
			if in.Email, err = p.line("Email: "); err != nil {
				return err
			}
			if in.Phone, err = p.line("Phone (+971...): "); err != nil {
				return err
			}
			if in.Password, err = p.secret("Password: "); err != nil {
				return err
			}
			next, err = flow.SubmitPersonal(ctx, in)
		case registration.StepVerification:
			code, perr := p.line("Verification code (or 'resend'): ")
			if perr != nil {
				return perr
			}
			if strings.EqualFold(code, "resend") {
				if err = flow.ResendCode(ctx); err == nil {
					printf(cmd, "A new code was sent\n")
				}
				next = step
			} else {
				next, err = flow.Verify(ctx, code)
			}
		case registration.StepLocation:
			var in registration.LocationInfo
			if in.Address, err = p.line("Address: "); err != nil {
				return err
			}
			if in.City, err = p.line("City: "); err != nil {
				return err
			}
			if in.Area, err = p.line("Area: "); err != nil {
				return err
			}
			next, err = flow.SubmitLocation(ctx, in)
		case registration.StepBusiness:
			var in registration.BusinessInfo
			if in.GarageName, err = p.line("Garage name: "); err != nil {
				return err
			}
			if in.TradeLicense, err = p.line("Trade license: "); err != nil {
				return err
			}
			if in.VATNumber, err = p.line("VAT number (optional): "); err != nil {
				return err
			}
			specialties, perr := p.line("Specialties (comma separated): ")
			if perr != nil {
				return perr
			}
			in.Specialties = splitList(specialties)
			u, serr := flow.SubmitBusiness(ctx, in)
			if serr == nil {
				if u.ID == "" {
					printf(cmd, "Registration submitted for %s, awaiting approval\n", u.Email)
				} else {
					printf(cmd, "Registered and signed in as %s\n", u.Email)
				}
				return nil
			}
			next, err = step, serr
		default:
			return fmt.Errorf("unknown registration step %q", step)
		}

		var verr validator.ValidationErrors
		switch {
		case err == nil:
			step = next
		case errors.Is(err, registration.ErrSessionExpired):
			printf(cmd, "%s\n", err)
			step = registration.StepPersonal
		case errors.As(err, &verr):
			printf(cmd, "Please check: %s\n", strings.Join(fieldNames(verr), ", "))
		default:
			return err
		}
	}
}

func fieldNames(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// prompter reads answers from the command's stdin. Secrets are read without
// echo when stdin is a terminal.
type prompter struct {
	cmd *cobra.Command
	in  *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{cmd: cmd, in: bufio.NewReader(cmd.InOrStdin())}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.cmd.OutOrStdout(), label)
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

func (p *prompter) secret(label string) (string, error) {
	f, ok := p.cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.line(label)
	}
	fmt.Fprint(p.cmd.OutOrStdout(), label)
	pass, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.cmd.OutOrStdout())
	return string(pass), err
}
