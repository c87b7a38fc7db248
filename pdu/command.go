package pdu

import (
	"fmt"
	"log/slog"
)

// CommandID identifies the operation carried by a PDU.
type CommandID uint32

// ResponseMask is set on every response command id.
const ResponseMask CommandID = 0x80000000

// SMPP v3.4 command identifiers.
const (
	GenericNackID         CommandID = 0x80000000
	BindTransceiverID     CommandID = 0x00000009
	BindTransceiverRespID CommandID = 0x80000009
	SubmitSmID            CommandID = 0x00000004
	SubmitSmRespID        CommandID = 0x80000004
	DeliverSmID           CommandID = 0x00000005
	DeliverSmRespID       CommandID = 0x80000005
	UnbindID              CommandID = 0x00000006
	UnbindRespID          CommandID = 0x80000006
	EnquireLinkID         CommandID = 0x00000015
	EnquireLinkRespID     CommandID = 0x80000015
)

// IsResponse reports whether the id has the response bit set.
func (id CommandID) IsResponse() bool { return id&ResponseMask != 0 }

// String returns the SMPP name of the command.
func (id CommandID) String() string {
	switch id {
	case GenericNackID:
		return "generic_nack"
	case BindTransceiverID:
		return "bind_transceiver"
	case BindTransceiverRespID:
		return "bind_transceiver_resp"
	case SubmitSmID:
		return "submit_sm"
	case SubmitSmRespID:
		return "submit_sm_resp"
	case DeliverSmID:
		return "deliver_sm"
	case DeliverSmRespID:
		return "deliver_sm_resp"
	case UnbindID:
		return "unbind"
	case UnbindRespID:
		return "unbind_resp"
	case EnquireLinkID:
		return "enquire_link"
	case EnquireLinkRespID:
		return "enquire_link_resp"
	default:
		return fmt.Sprintf("unknown(0x%08X)", uint32(id))
	}
}

// LogValue renders the command by name in structured logs.
func (id CommandID) LogValue() slog.Value { return slog.StringValue(id.String()) }

// CommandStatus is the command_status header field. Requests carry zero.
type CommandStatus uint32

// Command status values.
const (
	StatusOK              CommandStatus = 0x00000000
	StatusInvMsgLen       CommandStatus = 0x00000001
	StatusInvCmdLen       CommandStatus = 0x00000002
	StatusInvCmdID        CommandStatus = 0x00000003
	StatusInvBndSts       CommandStatus = 0x00000004
	StatusAlyBnd          CommandStatus = 0x00000005
	StatusInvPrtFlg       CommandStatus = 0x00000006
	StatusInvRegDlvFlg    CommandStatus = 0x00000007
	StatusSysErr          CommandStatus = 0x00000008
	StatusInvSrcAdr       CommandStatus = 0x0000000A
	StatusInvDstAdr       CommandStatus = 0x0000000B
	StatusInvMsgID        CommandStatus = 0x0000000C
	StatusBindFail        CommandStatus = 0x0000000D
	StatusInvPaswd        CommandStatus = 0x0000000E
	StatusInvSysID        CommandStatus = 0x0000000F
	StatusMsgQFul         CommandStatus = 0x00000014
	StatusInvSerTyp       CommandStatus = 0x00000015
	StatusInvEsmClass     CommandStatus = 0x00000043
	StatusSubmitFail      CommandStatus = 0x00000045
	StatusInvSrcTON       CommandStatus = 0x00000048
	StatusInvSrcNPI       CommandStatus = 0x00000049
	StatusInvDstTON       CommandStatus = 0x00000050
	StatusInvDstNPI       CommandStatus = 0x00000051
	StatusInvSysTyp       CommandStatus = 0x00000053
	StatusThrottled       CommandStatus = 0x00000058
	StatusInvSched        CommandStatus = 0x00000061
	StatusInvExpiry       CommandStatus = 0x00000062
	StatusTLVNotAllowed   CommandStatus = 0x000000C1
	StatusInvTLVLen       CommandStatus = 0x000000C2
	StatusMissingTLV      CommandStatus = 0x000000C3
	StatusInvTLVVal       CommandStatus = 0x000000C4
	StatusDeliveryFailure CommandStatus = 0x000000FE
	StatusUnknownErr      CommandStatus = 0x000000FF
)

var statusNames = map[CommandStatus]string{
	StatusOK:              "ESME_ROK",
	StatusInvMsgLen:       "ESME_RINVMSGLEN",
	StatusInvCmdLen:       "ESME_RINVCMDLEN",
	StatusInvCmdID:        "ESME_RINVCMDID",
	StatusInvBndSts:       "ESME_RINVBNDSTS",
	StatusAlyBnd:          "ESME_RALYBND",
	StatusInvPrtFlg:       "ESME_RINVPRTFLG",
	StatusInvRegDlvFlg:    "ESME_RINVREGDLVFLG",
	StatusSysErr:          "ESME_RSYSERR",
	StatusInvSrcAdr:       "ESME_RINVSRCADR",
	StatusInvDstAdr:       "ESME_RINVDSTADR",
	StatusInvMsgID:        "ESME_RINVMSGID",
	StatusBindFail:        "ESME_RBINDFAIL",
	StatusInvPaswd:        "ESME_RINVPASWD",
	StatusInvSysID:        "ESME_RINVSYSID",
	StatusMsgQFul:         "ESME_RMSGQFUL",
	StatusInvSerTyp:       "ESME_RINVSERTYP",
	StatusInvEsmClass:     "ESME_RINVESMCLASS",
	StatusSubmitFail:      "ESME_RSUBMITFAIL",
	StatusInvSrcTON:       "ESME_RINVSRCTON",
	StatusInvSrcNPI:       "ESME_RINVSRCNPI",
	StatusInvDstTON:       "ESME_RINVDSTTON",
	StatusInvDstNPI:       "ESME_RINVDSTNPI",
	StatusInvSysTyp:       "ESME_RINVSYSTYP",
	StatusThrottled:       "ESME_RTHROTTLED",
	StatusInvSched:        "ESME_RINVSCHED",
	StatusInvExpiry:       "ESME_RINVEXPIRY",
	StatusTLVNotAllowed:   "ESME_ROPTPARNOTALLWD",
	StatusInvTLVLen:       "ESME_RINVPARLEN",
	StatusMissingTLV:      "ESME_RMISSINGOPTPARAM",
	StatusInvTLVVal:       "ESME_RINVOPTPARAMVAL",
	StatusDeliveryFailure: "ESME_RDELIVERYFAILURE",
	StatusUnknownErr:      "ESME_RUNKNOWNERR",
}

// IsOK reports whether the status is ESME_ROK.
func (s CommandStatus) IsOK() bool { return s == StatusOK }

// String returns the ESME_* mnemonic, or the hex value for unlisted codes.
func (s CommandStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("0x%08X", uint32(s))
}

// LogValue renders the status by its mnemonic in structured logs.
func (s CommandStatus) LogValue() slog.Value { return slog.StringValue(s.String()) }

// Error implements error so a non-OK status can be wrapped directly.
func (s CommandStatus) Error() string {
	return "smpp status " + s.String()
}
