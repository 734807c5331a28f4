package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/beamhq/adgallery/internal/domain"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const defaultVectorDimension = 768

// VectorConnectionConfig holds configuration for the Qdrant connection.
type VectorConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API key (enables TLS automatically)
	UseTLS          bool   // Explicitly enable TLS without API key
	VectorDimension int
}

// apiKeyInterceptor creates a unary interceptor that adds the API key to metadata
func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// VectorRepository performs similarity lookups against Qdrant.
// The repository delegates all vector math to the engine; the application
// never compares vectors locally.
type VectorRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewVectorRepository creates a new VectorRepository.
// Supports both local Qdrant (insecure) and Qdrant Cloud (TLS + API key).
// Parameters:
//   - cfg: connection settings.
// Returns:
//   - *VectorRepository: connected repository.
//   - error: non-nil if the gRPC client cannot be created.
func NewVectorRepository(cfg *VectorConnectionConfig) (*VectorRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	var opts []grpc.DialOption

	useTLS := cfg.UseTLS || cfg.APIKey != ""
	if useTLS {
		tlsConfig := &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &VectorRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection.
func (r *VectorRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist and verifies
// the stored vector size matches the configured dimensionality.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - error: non-nil on dimension mismatch or creation failure.
func (r *VectorRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok {
			if size != uint64(r.vectorDimension) {
				return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
			}
		}
		return nil
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	if info == nil {
		return 0, false
	}
	config := info.GetConfig()
	if config == nil {
		return 0, false
	}
	params := config.GetParams()
	if params == nil {
		return 0, false
	}
	vectors := params.GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if single := vectors.GetParams(); single != nil {
		if size := single.GetSize(); size > 0 {
			return size, true
		}
	}
	return 0, false
}

// MatchByVector finds catalog IDs whose vectors are similar to the query
// vector. Only matches at or above threshold are returned, capped at limit.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - vector: query embedding.
//   - threshold: minimum cosine similarity score.
//   - limit: maximum number of candidates.
// Returns:
//   - []domain.SimilarityMatch: candidate IDs with scores, best first.
//   - error: non-nil if the lookup fails.
func (r *VectorRepository) MatchByVector(ctx context.Context, vector domain.Vector, threshold float32, limit int) ([]domain.SimilarityMatch, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         vector,
		Limit:          uint64(limit),
		ScoreThreshold: &threshold,
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}

	resp, err := r.pointsClient.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	matches := make([]domain.SimilarityMatch, 0, len(resp.Result))
	for _, scored := range resp.Result {
		payload := scored.GetPayload()
		if payload == nil {
			continue
		}
		idValue, ok := payload["image_id"]
		if !ok {
			continue
		}
		matches = append(matches, domain.SimilarityMatch{
			ImageID: idValue.GetIntegerValue(),
			Score:   scored.Score,
		})
	}

	return matches, nil
}

// UpsertImageVector inserts or updates the vector point for a catalog record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pointID: stable UUID for the point.
//   - vector: embedding to store.
//   - imageID: catalog ID carried in the payload.
//   - brandName: brand name carried in the payload.
//   - industry: industry tag carried in the payload.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *VectorRepository) UpsertImageVector(ctx context.Context, pointID string, vector domain.Vector, imageID int64, brandName, industry string) error {
	uid, err := uuid.Parse(pointID)
	if err != nil {
		return fmt.Errorf("invalid point ID: %w", err)
	}

	if len(vector) != r.vectorDimension {
		return fmt.Errorf("vector has %d dimensions, expected %d", len(vector), r.vectorDimension)
	}

	point := &pb.PointStruct{
		Id: &pb.PointId{
			PointIdOptions: &pb.PointId_Uuid{Uuid: uid.String()},
		},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{
				Vector: &pb.Vector{Data: vector},
			},
		},
		Payload: map[string]*pb.Value{
			"image_id":   {Kind: &pb.Value_IntegerValue{IntegerValue: imageID}},
			"brand_name": {Kind: &pb.Value_StringValue{StringValue: brandName}},
			"industry":   {Kind: &pb.Value_StringValue{StringValue: industry}},
		},
	}

	wait := true
	_, err = r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collectionName,
		Points:         []*pb.PointStruct{point},
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}

	return nil
}
