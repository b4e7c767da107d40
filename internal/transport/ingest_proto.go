package transport

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Ingest service identifiers.
const (
	IngestPackage = "frkr.ingest.v1"
	IngestService = IngestPackage + ".IngestService"
	IngestMethod  = "/" + IngestService + "/Ingest"
)

// IngestSchema holds the message descriptors of the ingest service:
//
//	message RequestData {
//	  string method = 1;
//	  string path = 2;
//	  map<string, string> headers = 3;
//	  string body = 4;
//	  map<string, string> query = 5;
//	  int64 timestamp_ns = 6;
//	  string request_id = 7;
//	}
//	message IngestRequest { string stream_id = 1; RequestData request = 2; }
//	message IngestResponse { bool accepted = 1; }
//	service IngestService { rpc Ingest(IngestRequest) returns (IngestResponse); }
type IngestSchema struct {
	File        protoreflect.FileDescriptor
	Request     protoreflect.MessageDescriptor
	RequestData protoreflect.MessageDescriptor
	Response    protoreflect.MessageDescriptor
}

var loadIngestSchema = sync.OnceValues(buildIngestSchema)

// LoadIngestSchema returns the ingest service descriptors, building them on
// first use.
func LoadIngestSchema() (*IngestSchema, error) {
	return loadIngestSchema()
}

func buildIngestSchema() (*IngestSchema, error) {
	requestData := &descriptorpb.DescriptorProto{
		Name: proto.String("RequestData"),
		Field: []*descriptorpb.FieldDescriptorProto{
			scalarField("method", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			scalarField("path", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			mapField("headers", 3, "RequestData.HeadersEntry"),
			scalarField("body", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			mapField("query", 5, "RequestData.QueryEntry"),
			scalarField("timestamp_ns", 6, descriptorpb.FieldDescriptorProto_TYPE_INT64),
			scalarField("request_id", 7, descriptorpb.FieldDescriptorProto_TYPE_STRING),
		},
		NestedType: []*descriptorpb.DescriptorProto{
			stringMapEntry("HeadersEntry"),
			stringMapEntry("QueryEntry"),
		},
	}

	ingestRequest := &descriptorpb.DescriptorProto{
		Name: proto.String("IngestRequest"),
		Field: []*descriptorpb.FieldDescriptorProto{
			scalarField("stream_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			messageField("request", 2, "RequestData"),
		},
	}

	ingestResponse := &descriptorpb.DescriptorProto{
		Name: proto.String("IngestResponse"),
		Field: []*descriptorpb.FieldDescriptorProto{
			scalarField("accepted", 1, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
		},
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:        proto.String("frkr/ingest/v1/ingest.proto"),
		Package:     proto.String(IngestPackage),
		Syntax:      proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{requestData, ingestRequest, ingestResponse},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("IngestService"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       proto.String("Ingest"),
				InputType:  proto.String("." + IngestPackage + ".IngestRequest"),
				OutputType: proto.String("." + IngestPackage + ".IngestResponse"),
			}},
		}},
	}

	file, err := protodesc.NewFile(fdp, new(protoregistry.Files))
	if err != nil {
		return nil, fmt.Errorf("build ingest descriptors: %w", err)
	}

	messages := file.Messages()
	return &IngestSchema{
		File:        file,
		RequestData: messages.ByName("RequestData"),
		Request:     messages.ByName("IngestRequest"),
		Response:    messages.ByName("IngestResponse"),
	}, nil
}

func scalarField(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func messageField(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String("." + IngestPackage + "." + typeName),
	}
}

func mapField(name string, number int32, entryName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String("." + IngestPackage + "." + entryName),
	}
}

func stringMapEntry(name string) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name: proto.String(name),
		Field: []*descriptorpb.FieldDescriptorProto{
			scalarField("key", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			scalarField("value", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
		},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	}
}

// NewIngestRequest builds an IngestRequest message carrying env.
func (s *IngestSchema) NewIngestRequest(env *Envelope) *dynamicpb.Message {
	dataFields := s.RequestData.Fields()
	data := dynamicpb.NewMessage(s.RequestData)
	data.Set(dataFields.ByName("method"), protoreflect.ValueOfString(ValidText(env.Request.Method)))
	data.Set(dataFields.ByName("path"), protoreflect.ValueOfString(ValidText(env.Request.Path)))
	data.Set(dataFields.ByName("body"), protoreflect.ValueOfString(ValidText(env.Request.Body)))
	data.Set(dataFields.ByName("timestamp_ns"), protoreflect.ValueOfInt64(env.Request.TimestampNs))
	data.Set(dataFields.ByName("request_id"), protoreflect.ValueOfString(ValidText(env.Request.RequestID)))
	fillStringMap(data, dataFields.ByName("headers"), env.Request.Headers)
	fillStringMap(data, dataFields.ByName("query"), env.Request.Query)

	reqFields := s.Request.Fields()
	msg := dynamicpb.NewMessage(s.Request)
	msg.Set(reqFields.ByName("stream_id"), protoreflect.ValueOfString(ValidText(env.StreamID)))
	msg.Set(reqFields.ByName("request"), protoreflect.ValueOfMessage(data))

	return msg
}

// NewIngestResponse returns an empty IngestResponse message.
func (s *IngestSchema) NewIngestResponse() *dynamicpb.Message {
	return dynamicpb.NewMessage(s.Response)
}

// EnvelopeFromMessage converts an IngestRequest message back into an Envelope.
func (s *IngestSchema) EnvelopeFromMessage(msg protoreflect.Message) *Envelope {
	reqFields := s.Request.Fields()
	data := msg.Get(reqFields.ByName("request")).Message()
	dataFields := s.RequestData.Fields()

	return &Envelope{
		StreamID: msg.Get(reqFields.ByName("stream_id")).String(),
		Request: RequestData{
			Method:      data.Get(dataFields.ByName("method")).String(),
			Path:        data.Get(dataFields.ByName("path")).String(),
			Headers:     readStringMap(data, dataFields.ByName("headers")),
			Body:        data.Get(dataFields.ByName("body")).String(),
			Query:       readStringMap(data, dataFields.ByName("query")),
			TimestampNs: data.Get(dataFields.ByName("timestamp_ns")).Int(),
			RequestID:   data.Get(dataFields.ByName("request_id")).String(),
		},
	}
}

func fillStringMap(msg *dynamicpb.Message, fd protoreflect.FieldDescriptor, values map[string]string) {
	if len(values) == 0 {
		return
	}
	m := msg.Mutable(fd).Map()
	for k, v := range values {
		m.Set(protoreflect.ValueOfString(ValidText(k)).MapKey(), protoreflect.ValueOfString(ValidText(v)))
	}
}

func readStringMap(msg protoreflect.Message, fd protoreflect.FieldDescriptor) map[string]string {
	src := msg.Get(fd).Map()
	out := make(map[string]string, src.Len())
	src.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
		out[k.String()] = v.String()
		return true
	})
	return out
}
