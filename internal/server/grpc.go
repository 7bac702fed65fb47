package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/repository"
)

// ServiceName is the fully qualified gRPC service name. Messages are
// google.protobuf.Struct values carrying the same JSON shapes as the HTTP API.
const ServiceName = "estatearchive.v1.EstateArchive"

// EstateArchiveServer is the gRPC surface.
type EstateArchiveServer interface {
	Process(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetResult(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListReviews(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveReview(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(EstateArchiveServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EstateArchiveServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EstateArchiveServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is registered by hand since the messages are well-known types.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EstateArchiveServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Process", Handler: unaryHandler("Process", EstateArchiveServer.Process)},
		{MethodName: "GetResult", Handler: unaryHandler("GetResult", EstateArchiveServer.GetResult)},
		{MethodName: "ListReviews", Handler: unaryHandler("ListReviews", EstateArchiveServer.ListReviews)},
		{MethodName: "ResolveReview", Handler: unaryHandler("ResolveReview", EstateArchiveServer.ResolveReview)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "estatearchive/v1/service.proto",
}

// GRPCService adapts Service to EstateArchiveServer.
type GRPCService struct {
	svc    *Service
	logger *slog.Logger
}

var _ EstateArchiveServer = (*GRPCService)(nil)

func NewGRPCService(svc *Service, logger *slog.Logger) *GRPCService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCService{svc: svc, logger: logger}
}

// NewGRPCServer builds a server with the estate-archive and health services registered.
func NewGRPCServer(svc *Service, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	s := grpc.NewServer(grpc.UnaryInterceptor(requestIDInterceptor(logger)))
	s.RegisterService(&ServiceDesc, NewGRPCService(svc, logger))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, hs
}

func requestIDInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		rid := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				rid = v[0]
			}
		}
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, rid)
		resp, err := handler(ctx, req)
		logger.Debug("grpc.request",
			"request_id", rid,
			"method", info.FullMethod,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return resp, common.ToStatus(err)
	}
}

func (g *GRPCService) Process(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ProcessRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	resp, err := g.svc.Process(ctx, req)
	if err != nil {
		return nil, err
	}
	return toStruct(resp)
}

func (g *GRPCService) GetResult(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	res, err := g.svc.GetResult(ctx, stringField(in, "document_id"))
	if err != nil {
		return nil, err
	}
	return toStruct(res)
}

func (g *GRPCService) ListReviews(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	pending := true
	if v, ok := in.GetFields()["pending"]; ok {
		pending = v.GetBoolValue()
	}
	filter := repository.ListFilter{
		BatchID: stringField(in, "batch_id"),
		Limit:   int(in.GetFields()["limit"].GetNumberValue()),
		Offset:  int(in.GetFields()["offset"].GetNumberValue()),
	}
	reviews, err := g.svc.ListReviews(ctx, pending, filter)
	if err != nil {
		return nil, err
	}
	return toStruct(map[string]any{"reviews": reviews, "count": len(reviews)})
}

func (g *GRPCService) ResolveReview(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(in, "document_id")
	if err := g.svc.ResolveReview(ctx, id, stringField(in, "resolution")); err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"document_id": id, "resolved": true})
}

func stringField(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// toStruct converts v through its JSON form, so field names match the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(m)
}

func fromStruct(in *structpb.Struct, dst any) error {
	raw, err := in.MarshalJSON()
	if err != nil {
		return common.WrapError(common.ErrInvalidInput, "decode request: "+err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return common.WrapError(common.ErrInvalidInput, "decode request: "+err.Error())
	}
	return nil
}
