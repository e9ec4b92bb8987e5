package ice

// IceResult is the result code returned by build/init-time operations:
// Init, the Add* candidate registry functions, and the request builders
// (spec §7).
type IceResult int

const (
	ResultOK IceResult = iota
	ResultBadParam
	ResultMaxCandidateThreshold
	ResultMaxCandidatePairThreshold
	ResultMaxChannelNumberThreshold
	ResultStunError
	ResultStunErrorAddAttribute
	ResultHmacError
	ResultSnprintfError
	ResultTransactionIDStoreError
	ResultInvalidCandidate
	ResultInvalidCandidateCredential
	ResultNoNextAction
)

var iceResultNames = map[IceResult]string{
	ResultOK:                         "OK",
	ResultBadParam:                   "BAD_PARAM",
	ResultMaxCandidateThreshold:      "MAX_CANDIDATE_THRESHOLD",
	ResultMaxCandidatePairThreshold:  "MAX_CANDIDATE_PAIR_THRESHOLD",
	ResultMaxChannelNumberThreshold:  "MAX_CHANNEL_NUMBER_THRESHOLD",
	ResultStunError:                  "STUN_ERROR",
	ResultStunErrorAddAttribute:      "STUN_ERROR_ADD_ATTRIBUTE",
	ResultHmacError:                  "HMAC_ERROR",
	ResultSnprintfError:              "SNPRINTF_ERROR",
	ResultTransactionIDStoreError:    "TRANSACTION_ID_STORE_ERROR",
	ResultInvalidCandidate:           "INVALID_CANDIDATE",
	ResultInvalidCandidateCredential: "INVALID_CANDIDATE_CREDENTIAL",
	ResultNoNextAction:               "NO_NEXT_ACTION",
}

func (r IceResult) String() string {
	if s, ok := iceResultNames[r]; ok {
		return s
	}
	return "UNKNOWN_ICE_RESULT"
}

// HandleStunPacketResult is returned by HandleStunPacket. It multiplexes
// three kinds of outcome (spec §7):
//   - informational results describing what happened to engine state,
//   - errors describing why a packet was rejected or dropped,
//   - action directives telling the caller what to build and send next.
type HandleStunPacketResult int

const (
	// Informational
	HandleResultOK HandleStunPacketResult = iota
	HandleResultFoundPeerReflexiveCandidate
	HandleResultUpdatedServerReflexiveCandidateAddress
	HandleResultUpdatedRelayCandidateAddress
	HandleResultValidCandidatePair
	HandleResultCandidatePairReady
	HandleResultStunBindingIndication
	HandleResultFreshComplete
	HandleResultFreshChannelBindComplete
	HandleResultTurnSessionTerminated

	// Errors
	HandleResultBadParam
	HandleResultDeserializeError
	HandleResultIntegrityMismatch
	HandleResultFingerprintMismatch
	HandleResultInvalidPacketType
	HandleResultCandidatePairNotFound
	HandleResultAddressAttributeNotFound
	HandleResultMatchingTransactionIDNotFound
	HandleResultInvalidFamilyType
	HandleResultInvalidCandidateType
	HandleResultInvalidResponse
	HandleResultUnexpectedResponse
	HandleResultNonZeroErrorCode
	HandleResultLongTermCredentialCalculationError
	HandleResultDropPacket
	HandleResultRandomErrorCode
	HandleResultAllocateUnknownError
	HandleResultRefreshUnknownError

	// Action directives
	HandleResultSendTriggeredCheck
	HandleResultSendResponseForRemoteRequest
	HandleResultSendResponseAndStartNomination
	HandleResultStartNomination
	HandleResultSendAllocationRequest
	HandleResultSendChannelBindRequest
	HandleResultSendConnectivityCheckRequest
)

var handleResultNames = map[HandleStunPacketResult]string{
	HandleResultOK:                                      "OK",
	HandleResultFoundPeerReflexiveCandidate:              "FOUND_PEER_REFLEXIVE_CANDIDATE",
	HandleResultUpdatedServerReflexiveCandidateAddress:   "UPDATED_SERVER_REFLEXIVE_CANDIDATE_ADDRESS",
	HandleResultUpdatedRelayCandidateAddress:             "UPDATED_RELAY_CANDIDATE_ADDRESS",
	HandleResultValidCandidatePair:                       "VALID_CANDIDATE_PAIR",
	HandleResultCandidatePairReady:                       "CANDIDATE_PAIR_READY",
	HandleResultStunBindingIndication:                    "STUN_BINDING_INDICATION",
	HandleResultFreshComplete:                            "FRESH_COMPLETE",
	HandleResultFreshChannelBindComplete:                 "FRESH_CHANNEL_BIND_COMPLETE",
	HandleResultTurnSessionTerminated:                    "TURN_SESSION_TERMINATED",
	HandleResultBadParam:                                 "BAD_PARAM",
	HandleResultDeserializeError:                         "DESERIALIZE_ERROR",
	HandleResultIntegrityMismatch:                        "INTEGRITY_MISMATCH",
	HandleResultFingerprintMismatch:                      "FINGERPRINT_MISMATCH",
	HandleResultInvalidPacketType:                        "INVALID_PACKET_TYPE",
	HandleResultCandidatePairNotFound:                     "CANDIDATE_PAIR_NOT_FOUND",
	HandleResultAddressAttributeNotFound:                 "ADDRESS_ATTRIBUTE_NOT_FOUND",
	HandleResultMatchingTransactionIDNotFound:            "MATCHING_TRANSACTION_ID_NOT_FOUND",
	HandleResultInvalidFamilyType:                        "INVALID_FAMILY_TYPE",
	HandleResultInvalidCandidateType:                     "INVALID_CANDIDATE_TYPE",
	HandleResultInvalidResponse:                          "INVALID_RESPONSE",
	HandleResultUnexpectedResponse:                       "UNEXPECTED_RESPONSE",
	HandleResultNonZeroErrorCode:                         "NON_ZERO_ERROR_CODE",
	HandleResultLongTermCredentialCalculationError:       "LONG_TERM_CREDENTIAL_CALCULATION_ERROR",
	HandleResultDropPacket:                               "DROP_PACKET",
	HandleResultRandomErrorCode:                          "RANDOM_ERROR_CODE",
	HandleResultAllocateUnknownError:                     "ALLOCATE_UNKNOWN_ERROR",
	HandleResultRefreshUnknownError:                      "REFRESH_UNKNOWN_ERROR",
	HandleResultSendTriggeredCheck:                       "SEND_TRIGGERED_CHECK",
	HandleResultSendResponseForRemoteRequest:             "SEND_RESPONSE_FOR_REMOTE_REQUEST",
	HandleResultSendResponseAndStartNomination:           "SEND_RESPONSE_AND_START_NOMINATION",
	HandleResultStartNomination:                          "START_NOMINATION",
	HandleResultSendAllocationRequest:                    "SEND_ALLOCATION_REQUEST",
	HandleResultSendChannelBindRequest:                   "SEND_CHANNEL_BIND_REQUEST",
	HandleResultSendConnectivityCheckRequest:             "SEND_CONNECTIVITY_CHECK_REQUEST",
}

func (r HandleStunPacketResult) String() string {
	if s, ok := handleResultNames[r]; ok {
		return s
	}
	return "UNKNOWN_HANDLE_RESULT"
}

// IsError reports whether r represents a rejected/dropped packet rather
// than an informational result or an action directive.
func (r HandleStunPacketResult) IsError() bool {
	return r >= HandleResultBadParam && r <= HandleResultRefreshUnknownError
}
