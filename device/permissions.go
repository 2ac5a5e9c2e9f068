package device

import (
	"fmt"
	"os"
	"os/user"
	"slices"
	"strconv"
)

// Access status strings shown to operators.
const (
	StatusNotFound  = "Not Found"
	StatusNoAccess  = "No Access"
	StatusReadOnly  = "Read Only"
	StatusWriteOnly = "Write Only"
	StatusReadWrite = "R/W Access"
)

// Permissions is what the filesystem says about a device node, seen from the identity that
// inspected it. It is never cached since permissions change between scans.
type Permissions struct {
	Exists   bool
	Readable bool
	Writable bool
	Owner    string
	Group    string
	UID      uint32
	GID      uint32
	// Mode holds the permission bits of the node.
	Mode os.FileMode
	// RawMode is the unmodified st_mode, file type bits included.
	RawMode uint32
	// Diagnostic explains a denied read or write, or a missing node.
	Diagnostic string
}

// PermissionString renders the permission bits as nine rwx- characters.
func (p Permissions) PermissionString() string {
	// FileMode.String prefixes the type, which is always '-' for bare permission bits.
	return p.Mode.Perm().String()[1:]
}

// OctalMode renders the permission bits in octal, e.g. "600".
func (p Permissions) OctalMode() string {
	return fmt.Sprintf("%03o", uint32(p.Mode.Perm()))
}

// Status classifies access into one of the fixed status strings.
func (p Permissions) Status() string {
	switch {
	case !p.Exists:
		return StatusNotFound
	case p.Readable && p.Writable:
		return StatusReadWrite
	case p.Readable:
		return StatusReadOnly
	case p.Writable:
		return StatusWriteOnly
	default:
		return StatusNoAccess
	}
}

// Identity is the effective user, group and supplementary groups access is checked for.
type Identity struct {
	UID    uint32
	GID    uint32
	Groups []uint32
}

// CurrentIdentity returns the effective identity of this process.
func CurrentIdentity() Identity {
	id := Identity{UID: uint32(os.Geteuid()), GID: uint32(os.Getegid())}
	//nolint:errcheck
	groups, _ := os.Getgroups()
	for _, g := range groups {
		id.Groups = append(id.Groups, uint32(g))
	}
	return id
}

// FileStat is the subset of stat(2) the inspector needs.
type FileStat struct {
	Mode uint32
	UID  uint32
	GID  uint32
}

// IsCharDevice reports whether the stat describes a character special file.
func (st FileStat) IsCharDevice() bool {
	return isCharMode(st.Mode)
}

// Inspector resolves the accessibility of device paths for an identity.
type Inspector struct {
	Identity Identity
	// Stat defaults to stat(2).
	Stat func(path string) (FileStat, error)
}

// NewInspector returns an inspector for the current process identity.
func NewInspector() *Inspector {
	return &Inspector{Identity: CurrentIdentity(), Stat: Stat}
}

// Inspect resolves existence, ownership, mode and effective read/write rights of path. Rights
// come from the owner bits when the uid matches, else the group bits when the gid matches the
// primary or a supplementary group, else the other bits.
func (ins *Inspector) Inspect(path string) Permissions {
	stat := ins.Stat
	if stat == nil {
		stat = Stat
	}
	st, err := stat(path)
	if err != nil {
		return Permissions{Diagnostic: fmt.Sprintf("device %s not found", path)}
	}

	perms := Permissions{
		Exists:  true,
		UID:     st.UID,
		GID:     st.GID,
		Owner:   userName(st.UID),
		Group:   groupName(st.GID),
		Mode:    os.FileMode(st.Mode & 0o777),
		RawMode: st.Mode,
	}

	var readBit, writeBit uint32
	switch {
	case ins.Identity.UID == st.UID:
		readBit, writeBit = 0o400, 0o200
	case ins.Identity.GID == st.GID || slices.Contains(ins.Identity.Groups, st.GID):
		readBit, writeBit = 0o040, 0o020
	default:
		readBit, writeBit = 0o004, 0o002
	}
	perms.Readable = st.Mode&readBit != 0
	perms.Writable = st.Mode&writeBit != 0

	if !perms.Readable || !perms.Writable {
		perms.Diagnostic = fmt.Sprintf(
			"%s is mode %s (%s) owned by %s:%s; add the user to group %q or grant access with chmod",
			path, perms.OctalMode(), perms.PermissionString(), perms.Owner, perms.Group, perms.Group)
	}
	return perms
}

func userName(uid uint32) string {
	id := strconv.FormatUint(uint64(uid), 10)
	if u, err := user.LookupId(id); err == nil {
		return u.Username
	}
	return id
}

func groupName(gid uint32) string {
	id := strconv.FormatUint(uint64(gid), 10)
	if g, err := user.LookupGroupId(id); err == nil {
		return g.Name
	}
	return id
}
