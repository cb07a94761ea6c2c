package dao

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"debond_gov/sdk"
)

type Address = sdk.Address
type Asset = sdk.Asset

// SecondsPerDay sizes the per-day reward schedule.
const SecondsPerDay = 86400

// MaxClassPeriod caps a class's voting period and execution delay (ten years).
const MaxClassPeriod = 10 * 365 * SecondsPerDay

// ProposalStatus captures a proposal's lifecycle.
type ProposalStatus uint8

const (
	StatusUnspecified ProposalStatus = 0
	StatusActive      ProposalStatus = 1
	StatusCanceled    ProposalStatus = 2
	StatusDefeated    ProposalStatus = 3
	StatusSucceeded   ProposalStatus = 4
	StatusExecuted    ProposalStatus = 5
)

// String prints the status as lower-case text for events and logs.
// Example payload: dao.StatusSucceeded.String()
func (ps ProposalStatus) String() string {
	switch ps {
	case StatusActive:
		return "active"
	case StatusCanceled:
		return "canceled"
	case StatusDefeated:
		return "defeated"
	case StatusSucceeded:
		return "succeeded"
	case StatusExecuted:
		return "executed"
	default:
		return "unspecified"
	}
}

// Terminal reports whether no transition leaves this status.
func (ps ProposalStatus) Terminal() bool {
	return ps == StatusCanceled || ps == StatusExecuted
}

// ParseStatus is the inverse of String.
func ParseStatus(s string) (ProposalStatus, bool) {
	for _, st := range []ProposalStatus{StatusActive, StatusCanceled, StatusDefeated, StatusSucceeded, StatusExecuted} {
		if strings.EqualFold(s, st.String()) {
			return st, true
		}
	}
	return StatusUnspecified, false
}

// Support is the side a ballot takes.
type Support uint8

const (
	SupportFor     Support = 1
	SupportAgainst Support = 2
)

func (s Support) String() string {
	switch s {
	case SupportFor:
		return "for"
	case SupportAgainst:
		return "against"
	default:
		return "unknown"
	}
}

// ParseSupport accepts for/against (and yes/no) case-insensitively.
func ParseSupport(s string) (Support, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "for", "yes":
		return SupportFor, nil
	case "against", "no":
		return SupportAgainst, nil
	}
	return 0, ErrInvalidSupport
}

// ApprovalMode is the rule a closed tally must pass.
type ApprovalMode uint8

const (
	ApprovalSimpleMajority   ApprovalMode = 1
	ApprovalAbsoluteMajority ApprovalMode = 2
	ApprovalSupermajority    ApprovalMode = 3
)

func (m ApprovalMode) String() string {
	switch m {
	case ApprovalSimpleMajority:
		return "simple_majority"
	case ApprovalAbsoluteMajority:
		return "absolute_majority"
	case ApprovalSupermajority:
		return "supermajority"
	default:
		return "unknown"
	}
}

// ParseApprovalMode is the inverse of String.
func ParseApprovalMode(s string) (ApprovalMode, error) {
	for _, m := range []ApprovalMode{ApprovalSimpleMajority, ApprovalAbsoluteMajority, ApprovalSupermajority} {
		if strings.EqualFold(strings.TrimSpace(s), m.String()) {
			return m, nil
		}
	}
	return 0, ErrInvalidConfig
}

// ClassConfig holds the rules of one proposal class. A copy is stored on every
// proposal at creation, so later edits only reach future proposals.
type ClassConfig struct {
	VotingPeriod      int64 // seconds
	QuorumBps         uint64
	Approval          ApprovalMode
	Vetoable          bool
	ProposalThreshold *uint256.Int
	ExecutionDelay    int64 // seconds after the window closes
	RewardPerDay      *uint256.Int
}

// Validate checks the class rules before they are stored.
func (c ClassConfig) Validate() error {
	switch {
	case c.VotingPeriod <= 0:
		return ErrInvalidConfig.withMsg("voting period must be positive")
	case c.QuorumBps > 10000:
		return ErrInvalidConfig.withMsg("quorum above 100%")
	case c.Approval < ApprovalSimpleMajority || c.Approval > ApprovalSupermajority:
		return ErrInvalidConfig.withMsg("unknown approval mode")
	case c.VotingPeriod > MaxClassPeriod:
		return ErrInvalidConfig.withf("voting period above %ds", MaxClassPeriod)
	case c.ExecutionDelay < 0:
		return ErrInvalidConfig.withMsg("negative execution delay")
	case c.ExecutionDelay > MaxClassPeriod:
		return ErrInvalidConfig.withf("execution delay above %ds", MaxClassPeriod)
	}
	return nil
}

// Days is the number of reward days a proposal of this class spans.
func (c ClassConfig) Days() int {
	days := (c.VotingPeriod + SecondsPerDay - 1) / SecondsPerDay
	if days < 1 {
		days = 1
	}
	return int(days)
}

// Stake is one locked principal position. Principal never changes after creation.
type Stake struct {
	Owner             Address
	Nonce             uint64
	Amount            *uint256.Int
	StartTime         int64
	Duration          int64
	LastInterestClaim int64
	VotesLocked       *uint256.Int
	Withdrawn         bool
	WithdrawnAt       int64
	Released          bool
}

// addSeconds adds b to the timestamp a and reports false when int64 overflows.
func addSeconds(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

// MaturesAt is the first second the stake may be unstaked without a release.
func (s *Stake) MaturesAt() int64 {
	return s.StartTime + s.Duration
}

// Account is the vote-credit position of one holder.
type Account struct {
	Balance *uint256.Int
	Locked  *uint256.Int
}

// Allowance lets Spender cast one ballot of up to Amount on the owner's credits.
type Allowance struct {
	Spender Address
	Amount  *uint256.Int
}

// Proposal is the stored proposal record. Targets, values and calldatas are
// fixed at creation; Status and Vetoed are the only fields that move after it.
type Proposal struct {
	Class           uint64
	Nonce           uint64
	Proposer        Address
	Targets         []Address
	Values          []*uint256.Int
	Calldatas       [][]byte
	Title           string
	DescriptionHash common.Hash
	StartVoteTime   int64
	EndVoteTime     int64
	Status          ProposalStatus
	Vetoed          bool
	Config          ClassConfig
	SupplySnapshot  *uint256.Int
	RewardSchedule  []*uint256.Int
	ResolvedAt      int64
	ExecutedAt      int64
}

// Tally aggregates the ballots of one proposal.
type Tally struct {
	For       *uint256.Int
	Against   *uint256.Int
	Voters    uint64
	DayTotals []*uint256.Int
}

// Cast is the total amount voted on the proposal.
func (t *Tally) Cast() *uint256.Int {
	return new(uint256.Int).Add(t.For, t.Against)
}

// Ballot is the per-voter record, keyed by the credit owner.
type Ballot struct {
	Support    Support
	Amount     *uint256.Int
	StakeNonce uint64
	Day        uint32
	CastBy     Address
	Unlocked   bool
	Reward     *uint256.Int
}

// Budget is the token allocation the protocol passes through unchanged.
type Budget struct {
	DGOV *uint256.Int
	DBIT *uint256.Int
}

func zero() *uint256.Int { return new(uint256.Int) }

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return zero()
	}
	return v
}
