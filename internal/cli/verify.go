package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aurumchain/go-aurum/internal/core/hardfork"
	"github.com/aurumchain/go-aurum/internal/core/oracle"
	"github.com/aurumchain/go-aurum/internal/core/protocol"
	"github.com/aurumchain/go-aurum/internal/crypto"
)

var (
	verifyFile        string
	verifyRecVersion  uint64
	verifySpot        uint64
	verifyMA          uint64
	verifyTimestamp   uint64
	verifySignature   string
	verifyKey         string
	verifyKeyFile     string
	verifyNetwork     string
	verifyForkVersion uint64
	verifyBlockTime   uint64
	verifyPrevTime    uint64
)

var verifyRecordCmd = &cobra.Command{
	Use:   "verify-record",
	Short: "Check a pricing record against the acceptance rules",
	Long: `Verify a pricing record offline, through the same sequence the node
applies to records carried by blocks: fork gate, rate presence, oracle
signature, then timestamp policy.

The record comes from --file (JSON in the API form, signature as hex) or
from the field flags. The oracle key defaults to the one configured for
the network; --key or --key-file overrides it. --block-time defaults to
now and --fork-version to the newest fork of the network, so a freshly
signed record verifies with no extra flags.

Examples:
    aurumd verify-record --file record.json
    aurumd verify-record --spot 1500000000000 --moving-average 1450000000000 \
        --timestamp 1755900000 --signature <128 hex chars> --key-file oracle.pem`,
	Run: runVerifyRecord,
}

func init() {
	rootCmd.AddCommand(verifyRecordCmd)

	verifyRecordCmd.Flags().StringVar(&verifyFile, "file", "", "JSON file holding the record in API form")
	verifyRecordCmd.Flags().Uint64Var(&verifyRecVersion, "record-version", 0, "record version tag")
	verifyRecordCmd.Flags().Uint64Var(&verifySpot, "spot", 0, "spot rate in atomic units")
	verifyRecordCmd.Flags().Uint64Var(&verifyMA, "moving-average", 0, "moving average rate in atomic units")
	verifyRecordCmd.Flags().Uint64Var(&verifyTimestamp, "timestamp", 0, "record timestamp, unix seconds")
	verifyRecordCmd.Flags().StringVar(&verifySignature, "signature", "", "record signature, 128 hex characters")
	verifyRecordCmd.Flags().StringVar(&verifyKey, "key", "", "oracle public key material (PEM or compressed secp256k1 hex)")
	verifyRecordCmd.Flags().StringVar(&verifyKeyFile, "key-file", "", "path to oracle public key file")
	verifyRecordCmd.Flags().StringVar(&verifyNetwork, "network", "", "network whose rules apply (default: configured network)")
	verifyRecordCmd.Flags().Uint64Var(&verifyForkVersion, "fork-version", 0, "fork version governing the carrying block (default: newest)")
	verifyRecordCmd.Flags().Uint64Var(&verifyBlockTime, "block-time", 0, "carrying block timestamp, unix seconds (default: now)")
	verifyRecordCmd.Flags().Uint64Var(&verifyPrevTime, "prev-time", 0, "previous block timestamp, unix seconds")
}

func runVerifyRecord(cmd *cobra.Command, args []string) {
	network, err := verifyTargetNetwork()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	rec, err := loadVerifyRecord()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	keys, err := resolveVerifyKeys(network, rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	forkVersion := verifyForkVersion
	if forkVersion == 0 {
		forkVersion = hardfork.LatestVersion(network)
	}
	blockTime := verifyBlockTime
	if blockTime == 0 {
		blockTime = uint64(time.Now().Unix())
	}

	fmt.Printf("network:      %s\n", network)
	fmt.Printf("fork version: %d\n", forkVersion)
	fmt.Printf("record:       version=%d spot=%d moving_average=%d timestamp=%d\n",
		rec.Version, rec.Spot, rec.MovingAverage, rec.Timestamp)
	if rec.Empty() {
		fmt.Println("record is empty: no quote, no signature required")
	} else {
		fmt.Printf("signature:    %s\n", rec.SignatureHex())
	}
	if key, err := keys.OracleKey(network); err == nil {
		fmt.Printf("oracle key:   %s (%s)\n", key.Fingerprint(), key.Algorithm())
	}

	validator := oracle.NewValidator(keys, log)
	if err := validator.Validate(&rec, network, forkVersion, blockTime, verifyPrevTime); err != nil {
		fmt.Printf("verdict:      INVALID: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("verdict:      VALID")
}

func verifyTargetNetwork() (protocol.Network, error) {
	if verifyNetwork != "" {
		return protocol.ParseNetwork(verifyNetwork)
	}
	return cfg.Network()
}

// loadVerifyRecord builds the record under test from --file or the field
// flags. The two sources are exclusive; mixing them would make the checked
// record ambiguous.
func loadVerifyRecord() (oracle.PricingRecord, error) {
	if verifyFile == "" {
		rec := oracle.PricingRecord{
			Version:       verifyRecVersion,
			Spot:          verifySpot,
			MovingAverage: verifyMA,
			Timestamp:     verifyTimestamp,
		}
		if verifySignature != "" {
			sig, err := oracle.ParseSignatureHex(verifySignature)
			if err != nil {
				return oracle.PricingRecord{}, err
			}
			rec.Signature = sig
		}
		return rec, nil
	}

	if verifySpot != 0 || verifyMA != 0 || verifyTimestamp != 0 || verifySignature != "" {
		return oracle.PricingRecord{}, fmt.Errorf("--file and record field flags are exclusive")
	}

	data, err := os.ReadFile(verifyFile)
	if err != nil {
		return oracle.PricingRecord{}, fmt.Errorf("reading %s: %w", verifyFile, err)
	}
	var form oracle.APIForm
	if err := json.Unmarshal(data, &form); err != nil {
		return oracle.PricingRecord{}, fmt.Errorf("parsing %s: %w", verifyFile, err)
	}
	return oracle.FromAPI(form)
}

// resolveVerifyKeys picks the oracle key: --key, then --key-file, then the
// node configuration. A non-empty record with no key anywhere is reported
// here rather than surfacing as a bare signature failure.
func resolveVerifyKeys(network protocol.Network, rec oracle.PricingRecord) (oracle.StaticKeys, error) {
	material := verifyKey
	if material == "" && verifyKeyFile != "" {
		data, err := os.ReadFile(verifyKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading key file: %w", err)
		}
		material = string(data)
	}

	if material != "" {
		pub, err := crypto.ParsePublicKey(material)
		if err != nil {
			return nil, fmt.Errorf("parsing oracle key: %w", err)
		}
		return oracle.StaticKeys{network: pub}, nil
	}

	keys, err := cfg.OracleKeys()
	if err != nil {
		return nil, err
	}
	if _, ok := keys[network]; !ok && !rec.Empty() {
		return nil, fmt.Errorf("no oracle key for %s; pass --key or --key-file", network)
	}
	return keys, nil
}
