package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aurumchain/go-aurum/internal/storage/recordstore"
)

// GetRecordRequest represents a request to get a stored pricing record.
type GetRecordRequest struct {
	// Specifier identifies which record to retrieve
	Specifier *RecordSpecifier

	// IncludeSupply indicates whether to include supply tallies
	IncludeSupply bool

	// IncludeAssets indicates whether to include per-asset rates
	IncludeAssets bool

	// Binary indicates whether to include the serialized record layout
	Binary bool
}

// GetRecordResponse represents the response containing a pricing record.
type GetRecordResponse struct {
	// Height is the chain height of the record
	Height uint64

	// Version is the record schema version
	Version uint64

	// Spot is the fixed-point spot price in atomic units
	Spot uint64

	// MovingAverage is the fixed-point smoothed price
	MovingAverage uint64

	// Timestamp is the oracle-asserted unix time of the quote
	Timestamp uint64

	// Signature is the raw oracle signature
	Signature []byte

	// Supply holds the block's mint and burn tallies (if requested)
	Supply *SupplyInfo

	// Assets holds per-asset rate pairs (if requested)
	Assets []AssetInfo

	// RecordBlob is the serialized record layout (if Binary is true)
	RecordBlob []byte
}

// SupplyInfo represents per-block mint and burn tallies.
// This mirrors the protobuf SupplyInfo message.
type SupplyInfo struct {
	// CoinBurnt is the amount of coin burnt in the block
	CoinBurnt uint64

	// CoinMinted is the amount of coin minted in the block
	CoinMinted uint64

	// AssetBurnt is the amount of asset burnt in the block
	AssetBurnt uint64

	// AssetMinted is the amount of asset minted in the block
	AssetMinted uint64
}

// AssetInfo represents the rate pair of one tracked asset.
// This mirrors the protobuf AssetInfo message.
type AssetInfo struct {
	// AssetID identifies the tracked asset
	AssetID uint64

	// Spot is the fixed-point spot price in atomic units
	Spot uint64

	// MovingAverage is the fixed-point smoothed price
	MovingAverage uint64
}

// GetRecord retrieves a stored pricing record.
func (s *Server) GetRecord(ctx context.Context, req *GetRecordRequest) (*GetRecordResponse, error) {
	if s.recordService == nil {
		return nil, status.Error(codes.Internal, "record service not available")
	}

	// Resolve entry from specifier
	entry, err := entryFromSpecifier(req.Specifier, s.recordService)
	if err != nil {
		switch err {
		case ErrRecordNotFound:
			return nil, status.Error(codes.NotFound, "record not found")
		case ErrNoRecords:
			return nil, status.Error(codes.NotFound, "no records stored")
		default:
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	resp := &GetRecordResponse{
		Height:        entry.Height,
		Version:       entry.Record.Version,
		Spot:          entry.Record.Spot,
		MovingAverage: entry.Record.MovingAverage,
		Timestamp:     entry.Record.Timestamp,
		Signature:     entry.Record.Signature[:],
	}

	// Include supply tallies if requested
	if req.IncludeSupply {
		resp.Supply = &SupplyInfo{
			CoinBurnt:   entry.Supply.CoinBurnt,
			CoinMinted:  entry.Supply.CoinMinted,
			AssetBurnt:  entry.Supply.AssetBurnt,
			AssetMinted: entry.Supply.AssetMinted,
		}
	}

	// Include per-asset rates if requested
	if req.IncludeAssets {
		for _, a := range entry.Assets {
			resp.Assets = append(resp.Assets, AssetInfo{
				AssetID:       a.AssetID,
				Spot:          a.Spot,
				MovingAverage: a.MovingAverage,
			})
		}
	}

	// Serialize the record if binary format requested
	if req.Binary {
		resp.RecordBlob = entry.Record.EncodeBlob()
	}

	return resp, nil
}

// GetRecordRangeRequest represents a request to get a span of stored records.
type GetRecordRangeRequest struct {
	// From is the first height of the span, inclusive
	From uint64

	// To is the last height of the span, inclusive
	To uint64

	// Limit is the maximum number of records to return
	Limit uint32

	// Binary indicates whether to include serialized record layouts
	Binary bool
}

// RecordInfo represents a single stored record within a range.
type RecordInfo struct {
	// Height is the chain height of the record
	Height uint64

	// Version is the record schema version
	Version uint64

	// Spot is the fixed-point spot price in atomic units
	Spot uint64

	// MovingAverage is the fixed-point smoothed price
	MovingAverage uint64

	// Timestamp is the oracle-asserted unix time of the quote
	Timestamp uint64

	// Signature is the raw oracle signature
	Signature []byte

	// Supply holds the block's mint and burn tallies
	Supply SupplyInfo

	// Assets holds per-asset rate pairs
	Assets []AssetInfo

	// RecordBlob is the serialized record layout (if Binary is true)
	RecordBlob []byte
}

// GetRecordRangeResponse represents the response containing a span of records.
type GetRecordRangeResponse struct {
	// Records contains the stored records in ascending height order
	Records []RecordInfo

	// NextFrom is the height to resume from on the next page
	NextFrom uint64

	// HasMore indicates more records remain at or past NextFrom
	HasMore bool
}

// GetRecordRange retrieves stored records over a height span with pagination.
// Heights with no stored record are skipped, not errors.
func (s *Server) GetRecordRange(ctx context.Context, req *GetRecordRangeRequest) (*GetRecordRangeResponse, error) {
	if s.recordService == nil {
		return nil, status.Error(codes.Internal, "record service not available")
	}

	// Set default limit
	limit := int(req.Limit)
	if limit == 0 || limit > 2048 {
		limit = 256
	}

	// Fetch one past the limit to detect a further page
	entries, err := s.recordService.EntryRange(req.From, req.To, limit+1)
	if err != nil {
		if errors.Is(err, recordstore.ErrInvalidRange) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, "failed to read record range: "+err.Error())
	}

	resp := &GetRecordRangeResponse{}

	if len(entries) > limit {
		resp.HasMore = true
		resp.NextFrom = entries[limit].Height
		entries = entries[:limit]
	}

	for _, e := range entries {
		resp.Records = append(resp.Records, entryToRecordInfo(e, req.Binary))
	}

	return resp, nil
}

// GetNodeStatusRequest represents a request for node status.
type GetNodeStatusRequest struct{}

// GetNodeStatusResponse represents the response containing node status.
type GetNodeStatusResponse struct {
	// Version is the build version string
	Version string

	// Network is the chain name (mainnet, testnet, stagenet)
	Network string

	// ForkVersion is the active hard fork version
	ForkVersion uint64

	// LatestHeight is the height of the newest stored record
	LatestHeight uint64

	// HasRecords indicates whether anything is stored yet
	HasRecords bool

	// StoredRecords is the number of stored records
	StoredRecords uint64

	// UptimeSeconds is how long the node has been running
	UptimeSeconds int64
}

// GetNodeStatus reports node identity and storage progress.
func (s *Server) GetNodeStatus(ctx context.Context, req *GetNodeStatusRequest) (*GetNodeStatusResponse, error) {
	if s.recordService == nil {
		return nil, status.Error(codes.Internal, "record service not available")
	}

	st := s.recordService.Status()

	return &GetNodeStatusResponse{
		Version:       st.Version,
		Network:       st.Network,
		ForkVersion:   st.ForkVersion,
		LatestHeight:  st.LatestHeight,
		HasRecords:    st.HasEntries,
		StoredRecords: st.StoredRecords,
		UptimeSeconds: st.UptimeSeconds,
	}, nil
}
