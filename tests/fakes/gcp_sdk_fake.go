package fakes

import (
	"context"
	"hash/crc32"
	"sync"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// FakeGCPSecretManagerClient is an in-memory GCP Secret Manager client.
type FakeGCPSecretManagerClient struct {
	// Versions maps version resource names (projects/X/secrets/Y/versions/Z) to payloads
	Versions map[string][]byte
	// Errors maps resource names to errors to return
	Errors map[string]error
	// GetSecretErr is returned by GetSecret
	GetSecretErr error
	// BadChecksum marks resource names whose payload checksum is wrong
	BadChecksum map[string]bool

	mu       sync.Mutex
	requests []*secretmanagerpb.AccessSecretVersionRequest
}

// NewFakeGCPSecretManagerClient creates an empty client
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Versions: make(map[string][]byte),
		Errors:      make(map[string]error),
		BadChecksum: make(map[string]bool),
	}
}

// Requests returns copies of the AccessSecretVersion requests received.
func (f *FakeGCPSecretManagerClient) Requests() []*secretmanagerpb.AccessSecretVersionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*secretmanagerpb.AccessSecretVersionRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// AccessSecretVersion implements the client interface
func (f *FakeGCPSecretManagerClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, proto.Clone(req).(*secretmanagerpb.AccessSecretVersionRequest))
	f.mu.Unlock()

	if err, ok := f.Errors[req.GetName()]; ok {
		return nil, err
	}
	data, ok := f.Versions[req.GetName()]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "Secret [%s] not found or has no versions", req.GetName())
	}
	sum := int64(crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli)))
	if f.BadChecksum[req.GetName()] {
		sum++
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name: req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{
			Data:       data,
			DataCrc32C: proto.Int64(sum),
		},
	}, nil
}

// GetSecret implements the client interface
func (f *FakeGCPSecretManagerClient) GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	if f.GetSecretErr != nil {
		return nil, f.GetSecretErr
	}
	return nil, status.Error(codes.NotFound, "not found")
}
