package domain

// Thulla (Bhabhi) rules: every card is dealt, suit must be followed and beaten
// when possible, and breaking suit hands the trick to whoever played the
// highest lead-suit card. The last player still holding cards loses the round.

// HighestLeadPlay returns the play holding the highest lead-suit card in the
// trick, which identifies both the pickup target and the next leader.
func HighestLeadPlay(trick Trick) (Play, bool) {
	if trick.LeadSuit == "" {
		return Play{}, false
	}
	var best Play
	found := false
	for _, play := range trick.Plays {
		if play.Card.Suit != trick.LeadSuit {
			continue
		}
		if !found || RankValue(play.Card.Rank) > RankValue(best.Card.Rank) {
			best = play
			found = true
		}
	}
	return best, found
}

// SuitBroken reports whether any play in the trick left the lead suit.
func SuitBroken(trick Trick) bool {
	if trick.LeadSuit == "" || len(trick.Plays) == 0 {
		return false
	}
	for _, play := range trick.Plays {
		if play.Card.Suit != trick.LeadSuit {
			return true
		}
	}
	return false
}

// ThullaValidCards returns the playable subset of a hand under beat-or-follow:
// leading allows anything; holding lead-suit cards that can beat the current
// high card restricts to those; otherwise any lead-suit card; a void hand may
// play anything, which breaks the suit.
func ThullaValidCards(p *Player, trick Trick) []Card {
	if len(trick.Plays) == 0 || trick.LeadSuit == "" {
		return p.Hand
	}

	high, hasHigh := HighestLeadPlay(trick)

	var suited []Card
	for _, c := range p.Hand {
		if c.Suit == trick.LeadSuit {
			suited = append(suited, c)
		}
	}
	if len(suited) == 0 {
		return p.Hand
	}
	if hasHigh {
		var beating []Card
		for _, c := range suited {
			if RankValue(c.Rank) > RankValue(high.Card.Rank) {
				beating = append(beating, c)
			}
		}
		if len(beating) > 0 {
			return beating
		}
	}
	return suited
}

// startingPlayerID finds the holder of the Ace of spades, defaulting to the
// first seat if nobody holds it.
func startingPlayerID(players []*Player) string {
	for _, p := range players {
		for _, c := range p.Hand {
			if c.Suit == Spades && c.Rank == "A" {
				return p.ID
			}
		}
	}
	if len(players) > 0 {
		return players[0].ID
	}
	return ""
}

// dealThulla deals floor(52/n) cards to every seat. The remainder stays in the
// deck so the 52-card conservation invariant holds for the whole round.
func (s *MatchState) dealThulla() {
	deck := Shuffle(NewDeck(), s.Rand)
	per := len(deck) / len(s.Players)
	for _, p := range s.Players {
		p.Hand = nil
		p.IsEliminated = false
		p.IsLoser = false
	}
	s.Deck = Deal(deck, s.Players, per)
	for _, p := range s.Players {
		SortHand(p.Hand)
	}
}

// startThulla deals the full deck and opens play with the Ace of spades.
func (s *MatchState) startThulla() {
	s.dealThulla()
	s.DealerID = s.Players[0].ID
	s.WastePile = nil
	for _, p := range s.Players {
		if _, ok := s.PlayerLosses[p.ID]; !ok {
			s.PlayerLosses[p.ID] = 0
		}
	}
	s.Phase = PhasePlaying
	s.CurrentTrick = newTrick()
	s.CurrentActorID = startingPlayerID(s.Players)
	s.setMessage("%s starts with Ace of Spades!", s.playerName(s.CurrentActorID))
}

// playCardThulla handles one play in the shedding game.
func (s *MatchState) playCardThulla(actor *Player, card Card) {
	s.CurrentTrick.Plays = append(s.CurrentTrick.Plays, Play{PlayerID: actor.ID, Card: card})
	if s.CurrentTrick.LeadSuit == "" {
		s.CurrentTrick.LeadSuit = card.Suit
	}

	if s.allActivePlayed() {
		s.resolveThullaTrick()
		return
	}

	// Trick still open: next active seat that has not yet played.
	played := map[string]bool{}
	for _, play := range s.CurrentTrick.Plays {
		played[play.PlayerID] = true
	}
	s.markEliminated()
	seat := s.SeatOf(actor.ID)
	for i := 1; i <= len(s.Players); i++ {
		p := s.Players[(seat+i)%len(s.Players)]
		if !p.IsEliminated && p.IsConnected && len(p.Hand) > 0 && !played[p.ID] {
			s.CurrentActorID = p.ID
			s.setMessage("%s's turn", p.Name)
			return
		}
	}
}

// allActivePlayed reports trick completion: every still-active player has
// contributed exactly one card.
func (s *MatchState) allActivePlayed() bool {
	played := map[string]bool{}
	for _, play := range s.CurrentTrick.Plays {
		played[play.PlayerID] = true
	}
	for _, p := range s.ActivePlayers() {
		if !played[p.ID] {
			return false
		}
	}
	return true
}

// resolveThullaTrick applies pickup-or-waste, refreshes elimination flags and
// either ends the round on a loser or selects the next leader.
func (s *MatchState) resolveThullaTrick() {
	trick := s.CurrentTrick
	s.CurrentTrick = newTrick()

	leaderPlay, _ := HighestLeadPlay(trick)
	leaderID := leaderPlay.PlayerID

	if SuitBroken(trick) {
		// Thulla: the highest lead-suit card picks up the whole trick.
		if pickup := s.FindPlayer(leaderID); pickup != nil {
			for _, play := range trick.Plays {
				pickup.Hand = append(pickup.Hand, play.Card)
			}
			SortHand(pickup.Hand)
			s.setMessage("%s picks up %d cards!", pickup.Name, len(trick.Plays))
		}
	} else {
		for _, play := range trick.Plays {
			s.WastePile = append(s.WastePile, play.Card)
		}
	}

	s.markEliminated()

	if loser, over := s.thullaLoser(); over {
		s.endThullaRound(loser)
		return
	}

	next := s.nextActiveFrom(leaderID)
	s.CurrentActorID = next
	if SuitBroken(trick) {
		s.Message += " " + s.playerName(next) + "'s turn."
	} else {
		s.setMessage("Trick discarded. %s leads!", s.playerName(next))
	}
}

// markEliminated refreshes each player's eliminated flag from hand size.
func (s *MatchState) markEliminated() {
	for _, p := range s.Players {
		p.IsEliminated = len(p.Hand) == 0
	}
}

// thullaLoser reports the round loser once exactly one active player remains.
func (s *MatchState) thullaLoser() (*Player, bool) {
	active := s.ActivePlayers()
	if len(active) == 1 {
		return active[0], true
	}
	return nil, false
}

// nextActiveFrom returns preferredID if that player is still active, else the
// next active seat in rotation after it.
func (s *MatchState) nextActiveFrom(preferredID string) string {
	p := s.FindPlayer(preferredID)
	if p != nil && !p.IsEliminated && p.IsConnected && len(p.Hand) > 0 {
		return preferredID
	}
	seat := s.SeatOf(preferredID)
	if seat < 0 {
		seat = 0
	}
	for i := 1; i <= len(s.Players); i++ {
		candidate := s.Players[(seat+i)%len(s.Players)]
		if !candidate.IsEliminated && candidate.IsConnected && len(candidate.Hand) > 0 {
			return candidate.ID
		}
	}
	return ""
}

// endThullaRound marks the loser, bumps their loss counter and parks the match
// in round-end.
func (s *MatchState) endThullaRound(loser *Player) {
	for _, p := range s.Players {
		p.IsLoser = p.ID == loser.ID
	}
	s.LoserID = loser.ID
	s.PlayerLosses[loser.ID]++
	s.Phase = PhaseRoundEnd
	s.CurrentActorID = ""
	s.setMessage("%s is the Thulla! They lose this round.", loser.Name)
}

// newRoundThulla resets hands and flags, re-deals and restarts from the Ace
// of spades holder.
func (s *MatchState) newRoundThulla() {
	s.dealThulla()
	s.WastePile = nil
	s.LoserID = ""
	s.Phase = PhasePlaying
	s.CurrentTrick = newTrick()
	s.CompletedTricks = nil
	s.CurrentActorID = startingPlayerID(s.Players)
	s.RoundNumber++
	s.setMessage("Round %d! %s starts.", s.RoundNumber, s.playerName(s.CurrentActorID))
}
