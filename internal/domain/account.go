package domain

// An account is any place goods are held: a user's currency balance, a
// fleet's cargo hold, a station's cargo. Accounts are identified by opaque
// string ids; the helpers below derive the conventional ids used by the
// market flows. Currency is itself a good moved by the ledger.

// GoodCredits is the good id of the game currency.
const GoodCredits = "credits"

// CurrencyAccount returns the account id holding an owner's credits.
func CurrencyAccount(owner string) string {
	return "user/" + owner
}

// CargoAccount returns the account id of an owner's cargo inventory in a
// system. Market fills move resources between the two parties' cargo
// accounts at the market's system.
func CargoAccount(owner, system string) string {
	return "cargo/" + owner + "/" + system
}

// FleetAccount returns the account id of a fleet's ship composition.
// Ship-type goods move between fleet accounts through the same ledger
// primitive as resources. A fleet left with zero ships across all types
// simply has no balance rows left; deleting the fleet itself is the
// caller's follow-on effect.
func FleetAccount(fleet string) string {
	return "fleet/" + fleet
}
