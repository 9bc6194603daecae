// Package acl evaluates stored access policies against a requested permission
// and caller identity. Policies travel with the object, embedded as JSON in
// the backend's custom metadata; no database is involved.
package acl

import (
	"context"
	"encoding/json"
	"fmt"

	"objectvault/internal/storage"
)

// MetadataKeyPolicy is the custom metadata key holding the serialized policy.
// The visibility is mirrored to storage.MetadataKeyVisibility so downloads
// can pick their Cache-Control without parsing the policy.
const MetadataKeyPolicy = "aclpolicy"

// Permission is a requested or granted access level. Write subsumes read.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

// satisfies reports whether a granted permission covers the requested one.
func (granted Permission) satisfies(requested Permission) bool {
	return granted == requested || granted == PermissionWrite && requested == PermissionRead
}

// Visibility classifies an object for anonymous read access.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Rule grants a permission to an explicit set of users.
type Rule struct {
	Users      []string   `json:"users"`
	Permission Permission `json:"permission"`
}

// Policy is the access-control record attached to an object.
type Policy struct {
	Owner      string     `json:"owner"`
	Visibility Visibility `json:"visibility"`
	Rules      []Rule     `json:"aclRules,omitempty"`
}

// SetPolicy persists the policy onto the object's custom metadata.
// The merge semantics of SetMetadata keep unrelated metadata intact.
func SetPolicy(ctx context.Context, f storage.ObjectFile, p Policy) error {
	if p.Visibility == "" {
		p.Visibility = VisibilityPrivate
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal acl policy: %w", err)
	}
	return f.SetMetadata(ctx, map[string]string{
		MetadataKeyPolicy:             string(b),
		storage.MetadataKeyVisibility: string(p.Visibility),
	})
}

// PolicyFor reads the policy stored on the object. A missing policy returns
// (nil, nil); access checks treat that as deny.
func PolicyFor(ctx context.Context, f storage.ObjectFile) (*Policy, error) {
	meta, err := f.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	raw, ok := meta.Custom[MetadataKeyPolicy]
	if !ok || raw == "" {
		return nil, nil
	}
	var p Policy
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode acl policy: %w", err)
	}
	return &p, nil
}

// CanAccess decides whether userID may perform perm on an object carrying
// policy. Order matters: public objects are readable by anyone including
// anonymous callers; everything else requires an identity; owners may do
// anything; otherwise the rules decide.
func CanAccess(userID string, policy *Policy, perm Permission) bool {
	if policy == nil {
		return false
	}
	if perm == PermissionRead && policy.Visibility == VisibilityPublic {
		return true
	}
	if userID == "" {
		return false
	}
	if policy.Owner != "" && policy.Owner == userID {
		return true
	}
	for _, rule := range policy.Rules {
		if !rule.Permission.satisfies(perm) {
			continue
		}
		for _, u := range rule.Users {
			if u == userID {
				return true
			}
		}
	}
	return false
}
