package cli

import (
	"encoding/hex"

	"debond_gov/contract/dao"
)

type callView struct {
	Target   string `yaml:"target"`
	Value    string `yaml:"value"`
	Calldata string `yaml:"calldata"`
}

type tallyView struct {
	For     string `yaml:"for"`
	Against string `yaml:"against"`
	Voters  uint64 `yaml:"voters"`
}

type proposal struct {
	Class           uint64     `yaml:"class"`
	Nonce           uint64     `yaml:"nonce"`
	Proposer        string     `yaml:"proposer"`
	Title           string     `yaml:"title"`
	DescriptionHash string     `yaml:"description_hash"`
	Status          string     `yaml:"status"`
	Vetoed          bool       `yaml:"vetoed"`
	StartVoteTime   int64      `yaml:"start_vote_time"`
	EndVoteTime     int64      `yaml:"end_vote_time"`
	SupplySnapshot  string     `yaml:"supply_snapshot"`
	Calls           []callView `yaml:"calls"`
	Tally           tallyView  `yaml:"tally"`
}

func proposalView(g *dao.Governance, class, nonce uint64) (*proposal, error) {
	status, err := g.GetProposalStatus(class, nonce)
	if err != nil {
		return nil, err
	}
	p, err := g.GetProposal(class, nonce)
	if err != nil {
		return nil, err
	}
	t, err := g.GetTally(class, nonce)
	if err != nil {
		return nil, err
	}
	v := &proposal{
		Class:           p.Class,
		Nonce:           p.Nonce,
		Proposer:        p.Proposer.String(),
		Title:           p.Title,
		DescriptionHash: p.DescriptionHash.Hex(),
		Status:          status.String(),
		Vetoed:          p.Vetoed,
		StartVoteTime:   p.StartVoteTime,
		EndVoteTime:     p.EndVoteTime,
		SupplySnapshot:  p.SupplySnapshot.Dec(),
		Tally:           tallyView{For: t.For.Dec(), Against: t.Against.Dec(), Voters: t.Voters},
	}
	for i, target := range p.Targets {
		v.Calls = append(v.Calls, callView{
			Target:   target.String(),
			Value:    p.Values[i].Dec(),
			Calldata: "0x" + hex.EncodeToString(p.Calldatas[i]),
		})
	}
	return v, nil
}

type stake struct {
	Owner       string `yaml:"owner"`
	Nonce       uint64 `yaml:"nonce"`
	Amount      string `yaml:"amount"`
	StartTime   int64  `yaml:"start_time"`
	MaturesAt   int64  `yaml:"matures_at"`
	VotesLocked string `yaml:"votes_locked"`
	Released    bool   `yaml:"released,omitempty"`
	Withdrawn   bool   `yaml:"withdrawn,omitempty"`
	WithdrawnAt int64  `yaml:"withdrawn_at,omitempty"`
}

func stakeView(st *dao.Stake) stake {
	return stake{
		Owner:       st.Owner.String(),
		Nonce:       st.Nonce,
		Amount:      st.Amount.Dec(),
		StartTime:   st.StartTime,
		MaturesAt:   st.MaturesAt(),
		VotesLocked: st.VotesLocked.Dec(),
		Released:    st.Released,
		Withdrawn:   st.Withdrawn,
		WithdrawnAt: st.WithdrawnAt,
	}
}

type account struct {
	Address   string            `yaml:"address"`
	Balances  map[string]string `yaml:"balances"`
	Credits   string            `yaml:"credits"`
	Locked    string            `yaml:"locked"`
	Delegate  string            `yaml:"delegate,omitempty"`
	Allowance string            `yaml:"allowance,omitempty"`
	Stakes    []stake           `yaml:"stakes"`
}

func accountView(g *dao.Governance, addr dao.Address) (*account, error) {
	cfg := g.Config()
	v := &account{Address: addr.String(), Balances: map[string]string{}}
	for _, asset := range []dao.Asset{cfg.PrincipalAsset, cfg.RewardAsset} {
		bal, err := g.BalanceOf(asset, addr)
		if err != nil {
			return nil, err
		}
		v.Balances[asset.String()] = bal.Dec()
	}
	acct, err := g.GetVoteCredits(addr)
	if err != nil {
		return nil, err
	}
	v.Credits, v.Locked = acct.Balance.Dec(), acct.Locked.Dec()
	al, err := g.GetAllowance(addr)
	if err != nil {
		return nil, err
	}
	if al != nil && al.Spender != "" {
		v.Delegate, v.Allowance = al.Spender.String(), al.Amount.Dec()
	}
	stakes, err := g.GetStakes(addr)
	if err != nil {
		return nil, err
	}
	for _, st := range stakes {
		v.Stakes = append(v.Stakes, stakeView(st))
	}
	return v, nil
}
