package email

const (
	subjectLeadOfferedFmt   = "Novo lead: %s"
	subjectOwnerApprovalFmt = "Aprovação pendente: %s"
	subjectAutoReplyFmt     = "Mensagem de %s"
)
