package grpcservice

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"go.klb.dev/clipwatch/internal/event"
)

// PayloadToStruct converts p to the Watch wire message.
func PayloadToStruct(p event.Payload) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"event":   event.ClipboardChanged,
		"kind":    string(p.Kind),
		"content": p.Content,
	})
}

// PayloadFromStruct converts a Watch wire message back to a payload.
func PayloadFromStruct(s *structpb.Struct) (event.Payload, error) {
	f := s.GetFields()
	if name := f["event"].GetStringValue(); name != event.ClipboardChanged {
		return event.Payload{}, fmt.Errorf("unexpected event %q", name)
	}
	kind, err := event.ParseKind(f["kind"].GetStringValue())
	if err != nil {
		return event.Payload{}, err
	}
	return event.Payload{Kind: kind, Content: f["content"].GetStringValue()}, nil
}

// WatchRequest builds the Watch request message.
func WatchRequest(kinds []event.Kind, replay bool) *structpb.Struct {
	list := make([]*structpb.Value, len(kinds))
	for i, k := range kinds {
		list[i] = structpb.NewStringValue(string(k))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"kinds":  structpb.NewListValue(&structpb.ListValue{Values: list}),
		"replay": structpb.NewBoolValue(replay),
	}}
}

func parseWatchRequest(req *structpb.Struct) ([]event.Kind, bool, error) {
	f := req.GetFields()
	var kinds []event.Kind
	for _, v := range f["kinds"].GetListValue().GetValues() {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, false, errors.New("kinds must be strings")
		}
		k, err := event.ParseKind(sv.StringValue)
		if err != nil {
			return nil, false, err
		}
		kinds = append(kinds, k)
	}
	return kinds, f["replay"].GetBoolValue(), nil
}
