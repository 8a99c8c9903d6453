package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const AdminServiceName = "scriptguard.admin.v1.AdminService"

// AdminServiceServer is the method set backing AdminServiceDesc. Every
// method takes and returns a Struct.
type AdminServiceServer interface {
	CreateProject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListProjects(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteProject(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddProjectAdmin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAPIKey(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAPIKeys(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAPIKey(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateKey(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListKeys(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteKey(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetFingerprint(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateKeyNote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CountExecutions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListExecutions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(AdminServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var AdminServiceDesc = grpc.ServiceDesc{
	ServiceName: AdminServiceName,
	HandlerType: (*AdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateProject", AdminServiceServer.CreateProject),
		unary("ListProjects", AdminServiceServer.ListProjects),
		unary("GetProject", AdminServiceServer.GetProject),
		unary("UpdateProject", AdminServiceServer.UpdateProject),
		unary("DeleteProject", AdminServiceServer.DeleteProject),
		unary("AddProjectAdmin", AdminServiceServer.AddProjectAdmin),
		unary("CreateAPIKey", AdminServiceServer.CreateAPIKey),
		unary("ListAPIKeys", AdminServiceServer.ListAPIKeys),
		unary("DeleteAPIKey", AdminServiceServer.DeleteAPIKey),
		unary("CreateKey", AdminServiceServer.CreateKey),
		unary("ListKeys", AdminServiceServer.ListKeys),
		unary("DeleteKey", AdminServiceServer.DeleteKey),
		unary("ResetFingerprint", AdminServiceServer.ResetFingerprint),
		unary("UpdateKeyNote", AdminServiceServer.UpdateKeyNote),
		unary("CountExecutions", AdminServiceServer.CountExecutions),
		unary("ListExecutions", AdminServiceServer.ListExecutions),
		unary("DeleteAccount", AdminServiceServer.DeleteAccount),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scriptguard/admin/v1/admin.proto",
}

// FullMethod returns the wire name of an AdminService method.
func FullMethod(name string) string {
	return "/" + AdminServiceName + "/" + name
}

func unary(name string, call structMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AdminServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AdminServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
