package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/contract"
)

// DeployContract verifies the owner's signature on the deployment and
// creates the contract seeded with the deployment balances.
func (s *State) DeployContract(d contract.Deployment) (string, error) {
	address, err := s.vm.Deploy(d)
	if err != nil {
		return "", err
	}

	s.evHandler("state: DeployContract: address[%s] owner[%s] balances[%d]", address, d.Owner, len(d.Balances))

	return address, nil
}

// CallContract verifies the signed call and executes it against the
// contract. Only the contract owner can call a contract.
func (s *State) CallContract(call contract.Call) (contract.Result, error) {
	return s.vm.Execute(call)
}

// QueryContractBalance returns the balance of the account inside the
// contract at the address.
func (s *State) QueryContractBalance(address string, account string) (contract.Result, error) {
	return s.vm.Call(address, contract.GetBalance{Address: account})
}

// QueryContract returns the contract deployed at the address.
func (s *State) QueryContract(address string) (*contract.Contract, error) {
	return s.vm.Contract(address)
}

// Contracts returns the addresses of every deployed contract.
func (s *State) Contracts() []string {
	return s.vm.Addresses()
}
