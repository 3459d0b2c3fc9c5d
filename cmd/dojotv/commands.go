package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/dojotv/api"
	"github.com/jrsteele09/dojotv/app"
	"github.com/jrsteele09/dojotv/auth"
	"github.com/jrsteele09/dojotv/catalog"
	"github.com/jrsteele09/dojotv/internal/config"
	"github.com/jrsteele09/dojotv/internal/logging"
	"github.com/jrsteele09/dojotv/users"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type cli struct {
	app    *app.App
	banner bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "dojotv",
		Short:         "Dojo TV session and study content client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			logging.Setup(cfg)
			if c.banner {
				displayAppname(cfg.GetAppName())
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			c.app = a
			a.Start(cmd.Context())
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}
	root.PersistentFlags().BoolVar(&c.banner, "banner", false, "print the app banner")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.roleCmd(),
		c.forgotPasswordCmd(),
		c.studyCmd(),
		c.categoriesCmd(),
		c.subCategoriesCmd(),
		c.announcementsCmd(),
		c.programsCmd(),
	)
	return root
}

func (c *cli) loginCmd() *cobra.Command {
	var userName, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				p, err := prompt(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				password = p
			}

			user, err := c.app.Session.Login(cmd.Context(), userName, password)
			if err != nil {
				return errors.New(failureMessage(err, c.app.Session.State().LastError))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&userName, "username", "u", "", "user name or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear stored credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if validate {
				if _, err := c.app.Session.Validate(cmd.Context()); err != nil && !api.IsUnauthorized(err) {
					return err
				}
			}

			st := c.app.Session.State()
			out := map[string]any{
				"status": st.Status.String(),
				"role":   st.Role.String(),
			}
			if st.User != nil {
				out["user"] = st.User.User
				out["userRole"] = st.User.UserRole
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "check the session with the server")
	return cmd
}

func (c *cli) roleCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "role <student|dojo|admin>",
		Short:     "Choose which screens to show after sign in",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{users.RoleStudent.String(), users.RoleDojo.String(), users.RoleAdmin.String()},
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := users.ParseRole(args[0])
			if err != nil {
				return err
			}
			return c.app.Session.SetRole(cmd.Context(), role)
		},
	}
}

func (c *cli) forgotPasswordCmd() *cobra.Command {
	var userName string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := c.app.Auth.SendPasswordResetEmail(cmd.Context(), auth.ForgotPasswordRequest{UserName: userName})
			if err != nil {
				return errors.New(failureMessage(err, ""))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password reset email sent")
			return nil
		},
	}
	cmd.Flags().StringVarP(&userName, "username", "u", "", "user name or email")
	return cmd
}

func (c *cli) studyCmd() *cobra.Command {
	study := &cobra.Command{
		Use:   "study",
		Short: "Browse study content",
	}

	params := &catalog.StudySearchParams{}
	list := &cobra.Command{
		Use:   "list",
		Short: "List study content for the signed-in contact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			listing, err := c.app.Catalog.GetStudyContentForContact(cmd.Context(), params)
			if err != nil {
				return errors.New(failureMessage(err, ""))
			}
			return printJSON(cmd.OutOrStdout(), listing)
		},
	}
	addPageFlags(list, &params.PageParams)
	list.Flags().StringSliceVar(&params.CategoryIDs, "category", nil, "category ids")
	list.Flags().StringSliceVar(&params.ProgramIDs, "program", nil, "program ids")
	list.Flags().StringSliceVar(&params.TagIDs, "tag", nil, "tag ids")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one study content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := c.app.Catalog.GetStudyContentByID(cmd.Context(), args[0])
			if err != nil {
				return errors.New(failureMessage(err, ""))
			}
			return printJSON(cmd.OutOrStdout(), item)
		},
	}

	study.AddCommand(list, get)
	return study
}

func (c *cli) categoriesCmd() *cobra.Command {
	params := &catalog.PageParams{}
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List study categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			listing, err := c.app.Catalog.GetStudyCategories(cmd.Context(), params)
			if err != nil {
				return errors.New(failureMessage(err, ""))
			}
			return printJSON(cmd.OutOrStdout(), listing)
		},
	}
	addPageFlags(cmd, params)
	return cmd
}

func (c *cli) subCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subcategories <category-id>",
		Short: "List the levels of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := c.app.Catalog.GetSubCategoriesByCategoryID(cmd.Context(), args[0])
			if err != nil {
				return errors.New(failureMessage(err, ""))
			}
			return printJSON(cmd.OutOrStdout(), subs)
		},
	}
}

func (c *cli) announcementsCmd() *cobra.Command {
	params := &catalog.PageParams{}
	cmd := &cobra.Command{
		Use:   "announcements",
		Short: "Show the notice board",
		RunE: func(cmd *cobra.Command, _ []string) error {
			listing, err := c.app.Catalog.GetAnnouncementsForContact(cmd.Context(), params)
			if err != nil {
				return errors.New(failureMessage(err, ""))
			}
			return printJSON(cmd.OutOrStdout(), listing)
		},
	}
	addPageFlags(cmd, params)
	return cmd
}

func (c *cli) programsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "programs",
		Short: "List programs, tags and clubs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			programs, err := c.app.Catalog.GetPrograms(cmd.Context())
			if err != nil {
				return errors.New(failureMessage(err, ""))
			}
			return printJSON(cmd.OutOrStdout(), programs)
		},
	}
}

func addPageFlags(cmd *cobra.Command, p *catalog.PageParams) {
	cmd.Flags().StringVar(&p.Search, "search", "", "search text")
	cmd.Flags().IntVar(&p.Limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&p.Page, "page", 0, "page number")
}

// failureMessage picks the text to show for err: a validation message, the session's last
// error, or the API message.
func failureMessage(err error, lastError string) string {
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		return verr.Message()
	}
	if api.IsUnauthorized(err) && lastError == "" {
		return "Your session has expired. Please sign in again."
	}
	if lastError != "" {
		return lastError
	}
	return api.Message(err, "")
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "[prompt] ReadString")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
