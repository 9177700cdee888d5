package gmail

// WebURL links a message ID to the Gmail web UI.
func WebURL(messageID string) string {
	if messageID == "" {
		return ""
	}
	return "https://mail.google.com/mail/u/0/#all/" + messageID
}
