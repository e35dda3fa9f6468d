package admingrpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// NodeInfo is the decoded GetNodeInfo response.
type NodeInfo struct {
	NodeID         string
	StartedAt      time.Time
	SessionsOpen   int64
	SessionsOpened int64
	StoreEntries   int64
	Buckets        int64
	UsedBuckets    int64
	LongestChain   int64
	MaxValueLen    int64
}

// GetNodeInfo calls the admin service over conn.
func GetNodeInfo(ctx context.Context, conn grpc.ClientConnInterface) (NodeInfo, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, getNodeInfoMethod, &emptypb.Empty{}, out); err != nil {
		return NodeInfo{}, err
	}
	return DecodeNodeInfo(out)
}

// DecodeNodeInfo converts a GetNodeInfo response struct into NodeInfo.
func DecodeNodeInfo(s *structpb.Struct) (NodeInfo, error) {
	fields := s.GetFields()
	info := NodeInfo{
		NodeID:         fields[FieldNodeID].GetStringValue(),
		SessionsOpen:   int64(fields[FieldSessionsOpen].GetNumberValue()),
		SessionsOpened: int64(fields[FieldSessionsOpened].GetNumberValue()),
		StoreEntries:   int64(fields[FieldStoreEntries].GetNumberValue()),
		Buckets:        int64(fields[FieldBuckets].GetNumberValue()),
		UsedBuckets:    int64(fields[FieldUsedBuckets].GetNumberValue()),
		LongestChain:   int64(fields[FieldLongestChain].GetNumberValue()),
		MaxValueLen:    int64(fields[FieldMaxValueLen].GetNumberValue()),
	}
	if raw := fields[FieldStartedAt].GetStringValue(); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return NodeInfo{}, fmt.Errorf("admin: parse %s: %w", FieldStartedAt, err)
		}
		info.StartedAt = t
	}
	return info, nil
}
