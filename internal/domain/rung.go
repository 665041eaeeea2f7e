package domain

// Rung (Court Piece) rules: 4 players in two fixed partnerships, trump chosen
// by the dealer's right-hand neighbour after the first five cards.

const (
	rungFirstDeal  = 5
	rungSecondDeal = 8
	rungTricks     = 13
	// courtSweepBonus is credited for winning all 13 tricks of a round.
	courtSweepBonus = 52
)

// CompareCards orders two cards within a trick. Positive means a beats b.
// Trump beats non-trump; among non-trump, lead suit beats off-suit; equal
// classes compare by rank. Two off-suit cards compare equal, so the incumbent
// (earlier) play keeps the trick.
func CompareCards(a, b Card, leadSuit, trumpSuit Suit) int {
	aTrump := trumpSuit != "" && a.Suit == trumpSuit
	bTrump := trumpSuit != "" && b.Suit == trumpSuit

	if aTrump && !bTrump {
		return 1
	}
	if !aTrump && bTrump {
		return -1
	}
	if aTrump && bTrump {
		return RankValue(a.Rank) - RankValue(b.Rank)
	}

	aLead := a.Suit == leadSuit
	bLead := b.Suit == leadSuit
	if aLead && !bLead {
		return 1
	}
	if !aLead && bLead {
		return -1
	}
	if aLead && bLead {
		return RankValue(a.Rank) - RankValue(b.Rank)
	}
	return 0
}

// TrickWinner resolves a trick to the winning player's id. Comparison is
// strict: a later equal card never displaces the incumbent.
func TrickWinner(trick Trick, trumpSuit Suit) string {
	if len(trick.Plays) == 0 || trick.LeadSuit == "" {
		return ""
	}
	winning := trick.Plays[0]
	for _, play := range trick.Plays[1:] {
		if CompareCards(play.Card, winning.Card, trick.LeadSuit, trumpSuit) > 0 {
			winning = play
		}
	}
	return winning.PlayerID
}

// ValidCards returns the playable subset of a hand under the follow-suit rule:
// the whole hand when leading or void in the lead suit, otherwise exactly the
// lead-suit cards.
func ValidCards(p *Player, trick Trick) []Card {
	if len(trick.Plays) == 0 || trick.LeadSuit == "" {
		return p.Hand
	}
	var suited []Card
	for _, c := range p.Hand {
		if c.Suit == trick.LeadSuit {
			suited = append(suited, c)
		}
	}
	if len(suited) > 0 {
		return suited
	}
	return p.Hand
}

// CheckCourt reports whether the first seven tricks of the round were all won
// by one team (a "goon court", ending the round immediately).
func CheckCourt(s *MatchState) (Team, bool) {
	if len(s.CompletedTricks) != 7 {
		return TeamNone, false
	}
	var team Team
	for i, t := range s.CompletedTricks[:7] {
		winner := s.FindPlayer(t.WinnerID)
		if winner == nil || winner.Team == TeamNone {
			return TeamNone, false
		}
		if i == 0 {
			team = winner.Team
			continue
		}
		if winner.Team != team {
			return TeamNone, false
		}
	}
	return team, true
}

// startRung shuffles, deals the first five cards and hands the trump decision
// to the player at seat 3, the dealer's right under the fixed rotation.
func (s *MatchState) startRung() {
	deck := Shuffle(NewDeck(), s.Rand)
	s.DealerID = s.Players[0].ID
	s.TrumpCallerID = s.Players[3].ID

	for _, p := range s.Players {
		p.Hand = nil
	}
	s.Deck = Deal(deck, s.Players, rungFirstDeal)
	for _, p := range s.Players {
		SortHand(p.Hand)
	}

	s.Phase = PhaseTrumpSelection
	s.CurrentTrick = newTrick()
	s.CompletedTricks = nil
	s.CurrentActorID = s.TrumpCallerID
	s.setMessage("%s is selecting trump...", s.playerName(s.TrumpCallerID))
}

// selectTrump deals the remaining cards, fixes trump and opens play with the
// trump caller on lead.
func (s *MatchState) selectTrump(actorID string, suit Suit) {
	if s.Phase != PhaseTrumpSelection || actorID != s.TrumpCallerID || !ValidSuit(suit) {
		return
	}
	s.Deck = Deal(s.Deck, s.Players, rungSecondDeal)
	for _, p := range s.Players {
		SortHand(p.Hand)
	}
	s.TrumpSuit = suit
	s.Phase = PhasePlaying
	s.CurrentActorID = s.TrumpCallerID
	s.setMessage("Trump is %s! %s leads.", suit, s.playerName(s.TrumpCallerID))
}

// playCardRung handles one play in the partnership game, resolving the trick
// and round scoring when complete.
func (s *MatchState) playCardRung(actor *Player, card Card) {
	s.CurrentTrick.Plays = append(s.CurrentTrick.Plays, Play{PlayerID: actor.ID, Card: card})
	if s.CurrentTrick.LeadSuit == "" {
		s.CurrentTrick.LeadSuit = card.Suit
	}

	if len(s.CurrentTrick.Plays) < len(s.Players) {
		next := s.Players[(s.SeatOf(actor.ID)+1)%len(s.Players)]
		s.CurrentActorID = next.ID
		s.setMessage("%s's turn", next.Name)
		return
	}

	winnerID := TrickWinner(s.CurrentTrick, s.TrumpSuit)
	winner := s.FindPlayer(winnerID)
	completed := s.CurrentTrick
	completed.WinnerID = winnerID
	s.CompletedTricks = append(s.CompletedTricks, completed)
	s.CurrentTrick = newTrick()

	if winner != nil && winner.Team == TeamA {
		s.TeamATricks++
	} else {
		s.TeamBTricks++
	}

	courtTeam, courtScored := CheckCourt(s)
	if len(s.CompletedTricks) == rungTricks || courtScored {
		s.endRungRound(courtTeam, courtScored)
		return
	}

	s.CurrentActorID = winnerID
	s.setMessage("%s wins the trick! (Team A: %d, Team B: %d)",
		s.playerName(winnerID), s.TeamATricks, s.TeamBTricks)
}

// endRungRound applies court and streak scoring, then parks the match in
// round-end awaiting a new-round action.
func (s *MatchState) endRungRound(courtTeam Team, courtScored bool) {
	if courtScored {
		if courtTeam == TeamA {
			s.TeamACourts++
			s.ConsecutiveA = 0
		} else {
			s.TeamBCourts++
			s.ConsecutiveB = 0
		}
	} else {
		if s.TeamATricks >= 7 {
			s.ConsecutiveA++
			s.ConsecutiveB = 0
			if s.ConsecutiveA >= 7 {
				s.TeamACourts++
				s.ConsecutiveA = 0
			}
		} else {
			s.ConsecutiveB++
			s.ConsecutiveA = 0
			if s.ConsecutiveB >= 7 {
				s.TeamBCourts++
				s.ConsecutiveB = 0
			}
		}
	}

	if s.TeamATricks == rungTricks {
		s.TeamACourts += courtSweepBonus
	}
	if s.TeamBTricks == rungTricks {
		s.TeamBCourts += courtSweepBonus
	}

	s.Phase = PhaseRoundEnd
	s.CurrentActorID = ""
	winner := "B"
	if s.TeamATricks >= 7 || (courtScored && courtTeam == TeamA) {
		winner = "A"
	}
	tricks := s.TeamBTricks
	if s.TeamATricks > s.TeamBTricks {
		tricks = s.TeamATricks
	}
	if courtScored {
		s.setMessage("Court! Team %s takes the round.", winner)
	} else {
		s.setMessage("Round over! Team %s wins with %d tricks!", winner, tricks)
	}
}

// newRoundRung rotates the dealer, recomputes the trump caller three seats
// past the new dealer, and re-deals the opening five cards.
func (s *MatchState) newRoundRung() {
	deck := Shuffle(NewDeck(), s.Rand)

	dealerSeat := s.SeatOf(s.DealerID)
	newDealerSeat := (dealerSeat + 1) % len(s.Players)
	callerSeat := (newDealerSeat + 3) % len(s.Players)
	s.DealerID = s.Players[newDealerSeat].ID
	s.TrumpCallerID = s.Players[callerSeat].ID

	for _, p := range s.Players {
		p.Hand = nil
	}
	s.Deck = Deal(deck, s.Players, rungFirstDeal)
	for _, p := range s.Players {
		SortHand(p.Hand)
	}

	s.Phase = PhaseTrumpSelection
	s.TrumpSuit = ""
	s.CurrentTrick = newTrick()
	s.CompletedTricks = nil
	s.TeamATricks = 0
	s.TeamBTricks = 0
	s.CurrentActorID = s.TrumpCallerID
	s.RoundNumber++
	s.setMessage("Round %d! %s is selecting trump...", s.RoundNumber, s.playerName(s.TrumpCallerID))
}
