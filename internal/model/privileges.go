package model

// Privileges is the server-side privilege bitset stored with an account.
type Privileges int32

const (
	// PrivUnrestricted marks an account in good standing. A cleared bit
	// means the account is restricted.
	PrivUnrestricted Privileges = 1 << 0
	// PrivVerified is granted on an account's first successful login.
	PrivVerified Privileges = 1 << 1

	PrivWhitelisted Privileges = 1 << 2

	PrivSupporter Privileges = 1 << 4
	PrivPremium   Privileges = 1 << 5

	PrivAlumni Privileges = 1 << 7

	PrivTourneyManager Privileges = 1 << 10
	PrivNominator      Privileges = 1 << 11
	PrivModerator      Privileges = 1 << 12
	PrivAdministrator  Privileges = 1 << 13
	PrivDeveloper      Privileges = 1 << 14

	PrivDonator Privileges = PrivSupporter | PrivPremium
	PrivStaff   Privileges = PrivModerator | PrivAdministrator | PrivDeveloper
)

// Has reports whether all bits of o are set.
func (p Privileges) Has(o Privileges) bool { return p&o == o }

// HasAny reports whether any bit of o is set.
func (p Privileges) HasAny(o Privileges) bool { return p&o != 0 }

// IsRestricted reports whether the account is restricted.
func (p Privileges) IsRestricted() bool { return p&PrivUnrestricted == 0 }

// IsVerified reports whether the account has logged in successfully before.
func (p Privileges) IsVerified() bool { return p&PrivVerified != 0 }

// ClientPrivileges is the reduced privilege bitset sent over the wire.
type ClientPrivileges int32

const (
	ClientPrivPlayer    ClientPrivileges = 1 << 0
	ClientPrivModerator ClientPrivileges = 1 << 1
	ClientPrivSupporter ClientPrivileges = 1 << 2
	ClientPrivOwner     ClientPrivileges = 1 << 3
	ClientPrivDeveloper ClientPrivileges = 1 << 4
)

// ClientPrivilegesFor derives the wire-visible privilege bits for an account.
func ClientPrivilegesFor(p Privileges) ClientPrivileges {
	var ret ClientPrivileges
	if p&PrivUnrestricted != 0 {
		ret |= ClientPrivPlayer
	}
	if p&PrivDonator != 0 {
		ret |= ClientPrivSupporter
	}
	if p&PrivModerator != 0 {
		ret |= ClientPrivModerator
	}
	if p&PrivAdministrator != 0 {
		ret |= ClientPrivDeveloper
	}
	if p&PrivDeveloper != 0 {
		ret |= ClientPrivOwner
	}
	return ret
}
