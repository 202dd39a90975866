package main

import (
	"context"
	"fmt"
)

// createAdmin updates or creates an active admin with this email.
func (cli *commandLine) createAdmin(ctx context.Context, name, email, pwd string) error {
	usr, created, err := cli.usrSvc.UpdateOrCreateAdmin(ctx, name, email, pwd)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("admin %q created (id %d)\n", usr.Email, usr.ID)
	} else {
		fmt.Printf("admin %q updated (id %d)\n", usr.Email, usr.ID)
	}
	return nil
}
