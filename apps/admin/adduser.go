package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

func (cli *commandLine) addUserCommand() *cobra.Command {
	var (
		name, uname, email string
		isEducator         bool
		isAdmin            bool
	)

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update it if the username or email is taken. The password is prompted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" && email == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			usr, err := cli.addUser(name, uname, email, pwd, isEducator, isAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "user %s saved (%s)\n", usr.ID, usr.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "The user's full name")
	cmd.Flags().StringVar(&uname, "username", "", "The user's username")
	cmd.Flags().StringVar(&email, "email", "", "The user's email")
	cmd.Flags().BoolVar(&isEducator, "educator", false, "Grant the educator role")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant all roles")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, isEducator, isAdmin bool) (user.User, error) {
	ctx := context.Background()
	name = core.CleanString(name)
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if tag := user.ValidatePassword(pwd, name, uname, email); tag != "" {
		return user.User{}, errors.New(user.PasswordPolicyText(tag))
	}

	usr, err := cli.findUser(ctx, uname, email)
	if err != nil {
		if err != user.ErrNotFound {
			return user.User{}, err
		}
		usr = user.User{Username: uname, Email: email}
	}
	if name != "" {
		usr.Name = name
	}

	switch {
	case isAdmin:
		usr.Roles = user.AllRoles
	case isEducator:
		usr.Roles = []string{user.RoleEducator}
	case len(usr.Roles) == 0:
		usr.Roles = []string{user.RoleLearner}
	}
	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}
	return cli.usrSvc.Save(ctx, usr)
}

func (cli *commandLine) findUser(ctx context.Context, unames ...string) (user.User, error) {
	for _, uname := range unames {
		if uname == "" {
			continue
		}
		usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
		if err != user.ErrNotFound {
			return usr, err
		}
	}
	return user.User{}, user.ErrNotFound
}
