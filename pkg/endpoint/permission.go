package endpoint

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Permission is the access mode granted on a socket file.
type Permission int

const (
	PermissionOwner Permission = iota + 1
	PermissionGroup
	PermissionWorld
)

// ErrUnknownPermission is returned for any token other than OWNER, GROUP or WORLD.
type ErrUnknownPermission struct {
	Token string
}

func (e *ErrUnknownPermission) Error() string {
	return fmt.Sprintf("unrecognized socket permission %q (want OWNER, GROUP or WORLD)", e.Token)
}

// ParsePermission maps a case-sensitive token to a Permission.
func ParsePermission(token string) (Permission, error) {
	switch token {
	case "OWNER":
		return PermissionOwner, nil
	case "GROUP":
		return PermissionGroup, nil
	case "WORLD":
		return PermissionWorld, nil
	default:
		return 0, &ErrUnknownPermission{Token: token}
	}
}

func (p Permission) String() string {
	switch p {
	case PermissionOwner:
		return "OWNER"
	case PermissionGroup:
		return "GROUP"
	case PermissionWorld:
		return "WORLD"
	default:
		return fmt.Sprintf("Permission(%d)", int(p))
	}
}

// Valid reports whether p is one of the recognized values.
func (p Permission) Valid() bool {
	return p >= PermissionOwner && p <= PermissionWorld
}

// FileMode is the mode a socket file bound with this permission should carry.
func (p Permission) FileMode() os.FileMode {
	mode := uint32(unix.S_IRUSR | unix.S_IWUSR)
	switch p {
	case PermissionGroup:
		mode |= unix.S_IRGRP | unix.S_IWGRP
	case PermissionWorld:
		mode |= unix.S_IRGRP | unix.S_IWGRP | unix.S_IROTH | unix.S_IWOTH
	}
	return os.FileMode(mode)
}

// MarshalJSON encodes the permission as its token.
func (p Permission) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("endpoint: cannot marshal invalid permission %d", int(p))
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a permission token strictly.
func (p *Permission) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return fmt.Errorf("endpoint: permission must be a string: %w", err)
	}
	parsed, err := ParsePermission(token)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
