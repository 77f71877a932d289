package patch

import (
	"context"

	"github.com/scimcore/idp-gateway/resource"
	"github.com/scimcore/idp-gateway/store"
)

// Apply decodes and dispatches every operation in body against groupID,
// then returns the refreshed group (spec.md §4.8: "After all operations,
// return the refreshed group via get_by_id").
func Apply(ctx context.Context, st store.Store, groupID string, body resource.PatchOp) (*resource.Group, error) {
	for _, operation := range body.Operations {
		if err := applyOne(ctx, st, groupID, Decode(operation)); err != nil {
			return nil, err
		}
	}
	return st.GetGroup(ctx, groupID)
}

func applyOne(ctx context.Context, st store.Store, groupID string, op Op) error {
	switch o := op.(type) {
	case ReplaceMetadata:
		_, err := st.UpdateGroup(ctx, groupID, o.Attrs)
		return err

	case AddMembers:
		for _, id := range o.UserIDs {
			if err := st.AddUserToGroup(ctx, id, groupID); err != nil {
				return err
			}
		}
		return nil

	case RemoveMembers:
		return st.RemoveUsersFromGroup(ctx, o.UserIDs, groupID)

	case ReplaceMembers:
		return st.SetGroupMembers(ctx, o.UserIDs, groupID)

	case RemoveByFilter:
		matched, err := st.SearchMembers(ctx, o.Filter, groupID)
		if err != nil {
			return err
		}
		ids := make([]string, len(matched))
		for i, m := range matched {
			ids[i] = m.Value
		}
		return st.RemoveUsersFromGroup(ctx, ids, groupID)

	case NoOp:
		return nil

	default:
		return nil
	}
}
