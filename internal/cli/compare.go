package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

var (
	compareShowAll bool
	compareOutput  string
)

var compareCmd = &cobra.Command{
	Use:   "compare <dump1> <dump2>",
	Short: "Compare two record dump files",
	Long: `Compare two record dumps height by height and show differences.

Shows:
- Added entries (in dump2 but not dump1)
- Removed entries (in dump1 but not dump2)
- Modified entries with field-by-field diff

Examples:
    aurumd compare before.dump after.dump
    aurumd compare exports/node-a.dump exports/node-b.dump --all
    aurumd compare before.dump after.dump -o diff.json`,
	Args: cobra.ExactArgs(2),
	Run:  runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().BoolVarP(&compareShowAll, "all", "a", false, "Show unchanged entries too")
	compareCmd.Flags().StringVarP(&compareOutput, "output", "o", "", "Output diff to JSON file")
}

func runCompare(cmd *cobra.Command, args []string) {
	dump1Path := args[0]
	dump2Path := args[1]

	fmt.Println("================================================================================")
	fmt.Println("                          Record Dump Comparison")
	fmt.Println("================================================================================")
	fmt.Printf("Dump 1: %s\n", dump1Path)
	fmt.Printf("Dump 2: %s\n", dump2Path)
	fmt.Println()

	header1, entries1, err := readDump(dump1Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load dump1: %v\n", err)
		os.Exit(1)
	}

	header2, entries2, err := readDump(dump2Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to load dump2: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Dump 1: %d entries, network %s\n", len(entries1), header1.Network)
	fmt.Printf("Dump 2: %d entries, network %s\n", len(entries2), header2.Network)
	if header1.Network != header2.Network {
		fmt.Println("WARNING: dumps come from different networks")
	}
	fmt.Println()

	added, removed, modified, unchanged := compareDumps(entries1, entries2)

	fmt.Println("--- Summary ---")
	fmt.Printf("Added:     %d entries (in dump2 but not dump1)\n", len(added))
	fmt.Printf("Removed:   %d entries (in dump1 but not dump2)\n", len(removed))
	fmt.Printf("Modified:  %d entries\n", len(modified))
	fmt.Printf("Unchanged: %d entries\n", len(unchanged))
	fmt.Println()

	if len(added) > 0 {
		printCompareSection("ADDED ENTRIES", "[+]", added)
	}

	if len(removed) > 0 {
		printCompareSection("REMOVED ENTRIES", "[-]", removed)
	}

	if len(modified) > 0 {
		printModifiedEntries(modified)
	}

	if compareShowAll && len(unchanged) > 0 {
		printCompareSection("UNCHANGED ENTRIES", "[=]", unchanged)
	}

	if compareOutput != "" {
		writeDiffJSON(compareOutput, added, removed, modified)
	}

	if len(added) > 0 || len(removed) > 0 || len(modified) > 0 {
		os.Exit(1)
	}
}

type modifiedEntry struct {
	Height    uint64
	OldFields map[string]string
	NewFields map[string]string
	Changed   []string
}

func compareDumps(entries1, entries2 []*recordstore.Entry) (added, removed []*recordstore.Entry, modified []modifiedEntry, unchanged []*recordstore.Entry) {
	map1 := make(map[uint64]*recordstore.Entry, len(entries1))
	for _, e := range entries1 {
		map1[e.Height] = e
	}
	map2 := make(map[uint64]*recordstore.Entry, len(entries2))
	for _, e := range entries2 {
		map2[e.Height] = e
	}

	for height, e2 := range map2 {
		e1, exists := map1[height]
		if !exists {
			added = append(added, e2)
			continue
		}
		old := entryFields(e1)
		new := entryFields(e2)
		changed := findChangedFields(old, new)
		if len(changed) > 0 {
			modified = append(modified, modifiedEntry{
				Height:    height,
				OldFields: old,
				NewFields: new,
				Changed:   changed,
			})
		} else {
			unchanged = append(unchanged, e2)
		}
	}

	for height, e1 := range map1 {
		if _, exists := map2[height]; !exists {
			removed = append(removed, e1)
		}
	}

	sort.Slice(added, func(i, j int) bool { return added[i].Height < added[j].Height })
	sort.Slice(removed, func(i, j int) bool { return removed[i].Height < removed[j].Height })
	sort.Slice(modified, func(i, j int) bool { return modified[i].Height < modified[j].Height })
	sort.Slice(unchanged, func(i, j int) bool { return unchanged[i].Height < unchanged[j].Height })

	return
}

// entryFields flattens an entry for diffing. Assets are keyed by asset id,
// so ordering differences between dumps do not show up as changes.
func entryFields(e *recordstore.Entry) map[string]string {
	fields := map[string]string{
		"pr_version":     strconv.FormatUint(e.Record.Version, 10),
		"spot":           strconv.FormatUint(e.Record.Spot, 10),
		"moving_average": strconv.FormatUint(e.Record.MovingAverage, 10),
		"timestamp":      strconv.FormatUint(e.Record.Timestamp, 10),
		"signature":      e.Record.SignatureHex(),
		"coin_burnt":     strconv.FormatUint(e.Supply.CoinBurnt, 10),
		"coin_minted":    strconv.FormatUint(e.Supply.CoinMinted, 10),
		"asset_burnt":    strconv.FormatUint(e.Supply.AssetBurnt, 10),
		"asset_minted":   strconv.FormatUint(e.Supply.AssetMinted, 10),
	}
	for i := range e.Assets {
		a := &e.Assets[i]
		key := fmt.Sprintf("asset_%d", a.AssetID)
		fields[key] = fmt.Sprintf("spot=%d moving_average=%d", a.Spot, a.MovingAverage)
	}
	return fields
}

func findChangedFields(old, new map[string]string) []string {
	allKeys := make(map[string]bool)
	for k := range old {
		allKeys[k] = true
	}
	for k := range new {
		allKeys[k] = true
	}

	changed := make([]string, 0)
	for k := range allKeys {
		oldVal, oldExists := old[k]
		newVal, newExists := new[k]
		if !oldExists || !newExists || oldVal != newVal {
			changed = append(changed, k)
		}
	}

	sort.Strings(changed)
	return changed
}

func printCompareSection(title, marker string, entries []*recordstore.Entry) {
	fmt.Println("================================================================================")
	fmt.Printf("%s%s\n", sectionPad(title), title)
	fmt.Println("================================================================================")

	for _, e := range entries {
		fmt.Printf("\n%s Height %d: %s\n", marker, e.Height, describeEntry(e))
	}
	fmt.Println()
}

func printModifiedEntries(entries []modifiedEntry) {
	fmt.Println("================================================================================")
	fmt.Printf("%sMODIFIED ENTRIES\n", sectionPad("MODIFIED ENTRIES"))
	fmt.Println("================================================================================")

	for _, m := range entries {
		fmt.Printf("\n[~] Height %d\n", m.Height)
		fmt.Printf("    Changed fields: %v\n", m.Changed)
		fmt.Println("    ---")
		for _, key := range m.Changed {
			fmt.Printf("    %s:\n", key)
			fmt.Printf("      - %s\n", fieldOrAbsent(m.OldFields, key))
			fmt.Printf("      + %s\n", fieldOrAbsent(m.NewFields, key))
		}
	}
	fmt.Println()
}

func sectionPad(title string) string {
	const width = 80
	pad := (width - len(title)) / 2
	if pad < 0 {
		pad = 0
	}
	out := make([]byte, pad)
	for i := range out {
		out[i] = ' '
	}
	return string(out)
}

func describeEntry(e *recordstore.Entry) string {
	if e.Record.Empty() {
		return "empty record"
	}
	desc := fmt.Sprintf("version=%d spot=%d moving_average=%d timestamp=%d",
		e.Record.Version, e.Record.Spot, e.Record.MovingAverage, e.Record.Timestamp)
	if len(e.Assets) > 0 {
		desc += fmt.Sprintf(" assets=%d", len(e.Assets))
	}
	return desc
}

func fieldOrAbsent(fields map[string]string, key string) string {
	if v, ok := fields[key]; ok {
		return v
	}
	return "(absent)"
}

func writeDiffJSON(path string, added, removed []*recordstore.Entry, modified []modifiedEntry) {
	output := map[string]interface{}{
		"added":    make([]map[string]interface{}, 0),
		"removed":  make([]map[string]interface{}, 0),
		"modified": make([]map[string]interface{}, 0),
	}

	for _, e := range added {
		output["added"] = append(output["added"].([]map[string]interface{}), map[string]interface{}{
			"height": e.Height,
			"record": e.Record.ToAPI(),
		})
	}

	for _, e := range removed {
		output["removed"] = append(output["removed"].([]map[string]interface{}), map[string]interface{}{
			"height": e.Height,
			"record": e.Record.ToAPI(),
		})
	}

	for _, m := range modified {
		output["modified"] = append(output["modified"].([]map[string]interface{}), map[string]interface{}{
			"height":         m.Height,
			"changed_fields": m.Changed,
			"old":            m.OldFields,
			"new":            m.NewFields,
		})
	}

	data, _ := json.MarshalIndent(output, "", "  ")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("ERROR: Failed to write diff file: %v\n", err)
	} else {
		fmt.Printf("Diff written to: %s\n", path)
	}
}
