package grpc

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	domain "user-service/internal/domain/user"
)

func userToStruct(u domain.User) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":    structpb.NewStringValue(u.ID),
		"name":  structpb.NewStringValue(u.Name),
		"email": structpb.NewStringValue(u.Email),
	}}
}

func usersToList(users []domain.User) *structpb.ListValue {
	list := &structpb.ListValue{Values: make([]*structpb.Value, len(users))}
	for i, u := range users {
		list.Values[i] = structpb.NewStructValue(userToStruct(u))
	}
	return list
}

func userFromStruct(s *structpb.Struct) domain.User {
	f := s.GetFields()
	return domain.User{
		ID:    f["id"].GetStringValue(),
		Name:  f["name"].GetStringValue(),
		Email: f["email"].GetStringValue(),
	}
}

func usersFromList(l *structpb.ListValue) ([]domain.User, error) {
	users := make([]domain.User, 0, len(l.GetValues()))
	for i, v := range l.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("list item %d is not a user object", i)
		}
		users = append(users, userFromStruct(s))
	}
	return users, nil
}

// optionalString returns nil for an absent or null field and rejects
// values that are not strings.
func optionalString(s *structpb.Struct, field string) (*string, error) {
	v, ok := s.GetFields()[field]
	if !ok {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		str := k.StringValue
		return &str, nil
	default:
		return nil, status.Errorf(codes.InvalidArgument, "field %q must be a string", field)
	}
}
