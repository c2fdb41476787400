package market

// AuthorizeResolve: só a authority gravada na criação pode resolver
func AuthorizeResolve(m *Market, caller string) error {
	if caller == "" || caller != m.Authority {
		return ErrUnauthorized
	}
	return nil
}

// AuthorizeClaim: só o dono da aposta pode sacar
func AuthorizeClaim(b *UserBet, caller string) error {
	if caller == "" || caller != b.Owner {
		return ErrUnauthorized
	}
	return nil
}
