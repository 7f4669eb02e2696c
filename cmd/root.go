/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/blacktop/cohostpost/internal/cohostpost"
	"github.com/blacktop/cohostpost/internal/cohostpost/cohost"
	"github.com/blacktop/cohostpost/internal/config"
	"github.com/blacktop/cohostpost/internal/logutil"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	nameFlag       string
	mimeFlag       string
	altTextFlag    string
	handleFlag     string
	tagsFlag       []string
	cwFlag         []string
	adultFlag      bool
	dryRun         bool
	verbose        bool
	passwordPrompt bool
)

// Execute runs the root command.
func Execute() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cohostpost [file]",
		Short: "Post a file to cohost",
		Long: "cohostpost logs in to cohost and publishes a single-attachment post. " +
			"Credentials are read from COHOSTPOST_* environment variables.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logutil.SetVerbose(verbose)
		},
		RunE: runRoot,
		Example: `  COHOSTPOST_USE=true cohostpost ./cat.png
  cohostpost ./shot.png --name "new shot" --tag cats --tag art
  cohostpost ./clip.webm --mime video/webm --dry-run`,
	}

	cmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Post headline and upload filename (default: file name)")
	cmd.Flags().StringVar(&mimeFlag, "mime", "", "Content type of the file (default: detected)")
	cmd.Flags().StringVar(&altTextFlag, "alt-text", "", "Alternative text to describe the attachment")
	cmd.Flags().StringVar(&handleFlag, "handle", "", "Project handle to post as (overrides "+config.EnvHandle+")")
	cmd.Flags().StringSliceVar(&tagsFlag, "tag", nil, "Tag to add to the post (repeatable)")
	cmd.Flags().StringSliceVar(&cwFlag, "cw", nil, "Content warning to add to the post (repeatable)")
	cmd.Flags().BoolVar(&adultFlag, "adult", false, "Mark the post as adult content")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print actions without posting")
	cmd.Flags().SortFlags = false

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&passwordPrompt, "password-prompt", false, "Prompt for the password when "+config.EnvPassword+" is not set")

	cmd.AddCommand(newLoginCommand())
	cmd.AddCommand(newCompletionCommand())

	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := buildRequest(args[0])
	if err != nil {
		return err
	}

	if dryRun {
		printDryRun(cmd.OutOrStdout(), req)
		return nil
	}

	svc, err := loadService(ctx, cmd)
	if err != nil {
		return err
	}
	if !svc.Enabled() {
		logutil.Infof("cohost posting disabled (set %s=true to enable)", config.EnvUse)
		return nil
	}

	if err := svc.Authenticate(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	return dispatch(ctx, []cohostpost.Poster{svc}, req, cmd.OutOrStdout())
}

func buildRequest(path string) (cohostpost.Request, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return cohostpost.Request{}, errors.New("file is required")
	}

	mimeType, err := resolveMimeType(path, mimeFlag)
	if err != nil {
		return cohostpost.Request{}, err
	}

	name := strings.TrimSpace(nameFlag)
	if name == "" {
		name = filepath.Base(path)
	}

	return cohostpost.Request{
		Name:           name,
		FilePath:       path,
		MimeType:       mimeType,
		AltText:        strings.TrimSpace(altTextFlag),
		Tags:           cleanList(tagsFlag),
		ContentWarning: cleanList(cwFlag),
		Adult:          adultFlag,
	}, nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func loadService(ctx context.Context, cmd *cobra.Command) (*cohost.Service, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if h := strings.TrimPrefix(strings.TrimSpace(handleFlag), "@"); h != "" {
		cfg.Handle = h
	}
	if cfg.Use && cfg.Password == "" && passwordPrompt {
		password, err := readPassword(cmd)
		if err != nil {
			return nil, err
		}
		cfg.Password = password
	}
	return cohost.New(cfg)
}

// swapped in tests
var (
	isTerminal   = term.IsTerminal
	readTerminal = term.ReadPassword
)

func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", errors.New("--password-prompt requires an interactive terminal")
	}
	fmt.Fprint(cmd.ErrOrStderr(), "cohost password: ")
	password, err := readTerminal(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

func printDryRun(out io.Writer, req cohostpost.Request) {
	fmt.Fprintf(out, "[dry-run] would post %q (%s) as %q\n", req.FilePath, req.MimeType, req.Name)
	if req.AltText != "" {
		fmt.Fprintf(out, "[dry-run] alt text: %q\n", req.AltText)
	}
	if len(req.Tags) > 0 {
		fmt.Fprintf(out, "[dry-run] tags: %s\n", strings.Join(req.Tags, ", "))
	}
	if len(req.ContentWarning) > 0 {
		fmt.Fprintf(out, "[dry-run] content warnings: %s\n", strings.Join(req.ContentWarning, ", "))
	}
	if req.Adult {
		fmt.Fprintln(out, "[dry-run] adult content")
	}
}

func dispatch(ctx context.Context, posters []cohostpost.Poster, req cohostpost.Request, out io.Writer) error {
	var errs []error
	for _, poster := range posters {
		fmt.Fprintf(out, "posting %s to %s...\n", req.Name, poster.Name())
		if err := poster.Post(ctx, req); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", poster.Name(), err))
			continue
		}
		fmt.Fprintf(out, "posted to %s\n", poster.Name())
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
