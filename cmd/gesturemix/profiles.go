package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/gesturemix/internal/mapping"
	"github.com/ayusman/gesturemix/internal/store"
)

var (
	flagOut         string
	flagAuthor      string
	flagDescription string
	flagPolicy      string
)

func newProfilesCmd() *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "List, export and import mapping profiles",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List profiles; the active one is marked with *",
		Args:  cobra.NoArgs,
		RunE:  runProfilesList,
	}

	exportCmd := &cobra.Command{
		Use:   "export [profile-id...]",
		Short: "Write profiles as a bundle (all user profiles when no id is given)",
		RunE:  runProfilesExport,
	}
	exportCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVar(&flagAuthor, "author", "", "Bundle author")
	exportCmd.Flags().StringVar(&flagDescription, "description", "", "Bundle description")

	importCmd := &cobra.Command{
		Use:   "import <bundle.json>",
		Short: "Import profiles from a bundle file",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfilesImport,
	}
	importCmd.Flags().StringVar(&flagPolicy, "policy", string(mapping.ImportMerge), "Conflict policy: merge or overwrite")

	profilesCmd.AddCommand(listCmd, exportCmd, importCmd)
	return profilesCmd
}

// openRegistry loads the stored profiles into a registry backed by the store.
func openRegistry(cmd *cobra.Command) (*mapping.Registry, *store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	reg := mapping.NewRegistry(st.Persister())
	if err := st.LoadRegistry(reg); err != nil {
		st.Close()
		return nil, nil, err
	}
	return reg, st, nil
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	reg, st, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	active := reg.Active().ID
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tNAME\tMAPPINGS\tBUILT-IN")
	for _, p := range reg.Profiles() {
		mark := ""
		if p.ID == active {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%v\n", mark, p.ID, p.Name, len(p.Mappings), p.BuiltIn)
	}
	return w.Flush()
}

func runProfilesExport(cmd *cobra.Command, args []string) error {
	reg, st, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := reg.Export(flagAuthor, flagDescription, args...)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if flagOut != "" {
		f, err := os.Create(flagOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := b.Encode(out); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	if flagOut != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d profiles to %s\n", len(b.Profiles), flagOut)
	}
	return nil
}

func runProfilesImport(cmd *cobra.Command, args []string) error {
	policy, err := mapping.ParseImportPolicy(flagPolicy)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := mapping.DecodeBundle(f)
	if err != nil {
		return err
	}

	reg, st, err := openRegistry(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := reg.Import(b, policy)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "profiles: %d imported, %d skipped; mappings: %d imported, %d skipped\n",
		res.ProfilesImported, res.ProfilesSkipped, res.MappingsImported, res.MappingsSkipped)
	for _, s := range res.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s %s (%s): %s\n", s.Kind, s.ID, s.Name, s.Reason)
	}
	return nil
}
