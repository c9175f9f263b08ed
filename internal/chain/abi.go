package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// 合約方法名稱（屬於外部 ABI，不可自行更動）
const (
	MethodCreateTicket     = "createTicket"
	MethodRegister         = "register"
	MethodIsRegistered     = "isRegistered"
	MethodGetRecentTickets = "getRecentTickets"
	MethodTickets          = "tickets"
	MethodCancelTicket     = "cancelTicket"
	MethodCloseTicket      = "closeTicket"
	MethodClaimRefund      = "claimRefund"
	MethodWithdrawProceeds = "withdrawProceeds"
	MethodTransferFrom     = "transferFrom"
	MethodSafeTransferFrom = "safeTransferFrom"

	MethodListTicket    = "listTicket"
	MethodBuyTicket     = "buyTicket"
	MethodCancelListing = "cancelListing"
	MethodGetListing    = "getListing"

	EventTicketRegistered = "TicketRegistered"
	EventTransfer         = "Transfer"
)

const ticketTupleComponents = `[
	{"internalType":"uint256","name":"id","type":"uint256"},
	{"internalType":"address","name":"creator","type":"address"},
	{"internalType":"uint256","name":"price","type":"uint256"},
	{"internalType":"string","name":"eventName","type":"string"},
	{"internalType":"string","name":"description","type":"string"},
	{"internalType":"uint256","name":"eventTimestamp","type":"uint256"},
	{"internalType":"string","name":"location","type":"string"},
	{"internalType":"bool","name":"closed","type":"bool"},
	{"internalType":"bool","name":"canceled","type":"bool"},
	{"internalType":"string","name":"metadata","type":"string"},
	{"internalType":"uint256","name":"maxSupply","type":"uint256"},
	{"internalType":"uint256","name":"sold","type":"uint256"},
	{"internalType":"uint256","name":"totalCollected","type":"uint256"},
	{"internalType":"uint256","name":"totalRefunded","type":"uint256"},
	{"internalType":"bool","name":"proceedsWithdrawn","type":"bool"}
]`

// TicketContractABI 活動票務合約（同時是 ERC-721 票券 NFT）
var TicketContractABI = `[
  {"type":"function","name":"createTicket","stateMutability":"nonpayable","inputs":[
    {"name":"price","type":"uint256"},
    {"name":"name","type":"string"},
    {"name":"description","type":"string"},
    {"name":"eventTimestamp","type":"uint256"},
    {"name":"maxSupply","type":"uint256"},
    {"name":"metadata","type":"string"},
    {"name":"location","type":"string"}],"outputs":[]},
  {"type":"function","name":"register","stateMutability":"payable","inputs":[{"name":"ticketId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"isRegistered","stateMutability":"view","inputs":[
    {"name":"ticketId","type":"uint256"},
    {"name":"user","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getRecentTickets","stateMutability":"view","inputs":[],"outputs":[
    {"name":"","type":"tuple[]","internalType":"struct EventTicket.Ticket[]","components":` + ticketTupleComponents + `}]},
  {"type":"function","name":"tickets","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":` + ticketTupleComponents + `},
  {"type":"function","name":"cancelTicket","stateMutability":"nonpayable","inputs":[{"name":"ticketId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"closeTicket","stateMutability":"nonpayable","inputs":[{"name":"ticketId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"claimRefund","stateMutability":"nonpayable","inputs":[{"name":"ticketId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"withdrawProceeds","stateMutability":"nonpayable","inputs":[{"name":"ticketId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[
    {"name":"from","type":"address"},
    {"name":"to","type":"address"},
    {"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"safeTransferFrom","stateMutability":"nonpayable","inputs":[
    {"name":"from","type":"address"},
    {"name":"to","type":"address"},
    {"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"TicketRegistered","anonymous":false,"inputs":[
    {"indexed":true,"name":"ticketId","type":"uint256"},
    {"indexed":true,"name":"attendee","type":"address"},
    {"indexed":false,"name":"tokenId","type":"uint256"}]},
  {"type":"event","name":"Transfer","anonymous":false,"inputs":[
    {"indexed":true,"name":"from","type":"address"},
    {"indexed":true,"name":"to","type":"address"},
    {"indexed":true,"name":"tokenId","type":"uint256"}]}
]`

// MarketContractABI 二手市場合約
var MarketContractABI = `[
  {"type":"function","name":"listTicket","stateMutability":"nonpayable","inputs":[
    {"name":"tokenId","type":"uint256"},
    {"name":"price","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"buyTicket","stateMutability":"payable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"cancelListing","stateMutability":"nonpayable","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"getListing","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[
    {"name":"","type":"tuple","internalType":"struct ResaleMarket.Listing","components":[
      {"name":"tokenId","type":"uint256"},
      {"name":"ticketId","type":"uint256"},
      {"name":"seller","type":"address"},
      {"name":"price","type":"uint256"},
      {"name":"active","type":"bool"}]}]}
]`

var (
	ticketABI = mustParseABI(TicketContractABI)
	marketABI = mustParseABI(MarketContractABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// TicketABI parsed ABI of the ticket contract.
func TicketABI() abi.ABI { return ticketABI }

// MarketABI parsed ABI of the resale market contract.
func MarketABI() abi.ABI { return marketABI }
