package conversation

// userMergeSeparator joins consecutive user turns
const userMergeSeparator = "\n\n"

// Normalize collapses consecutive same-role turns so the history alternates
// the way the backends expect.
//
// Each message is compared with the last *output* entry. Repeated user turns
// are concatenated onto the earlier entry; a repeated assistant turn replaces
// the earlier one (its content is discarded). Any other repeated role is kept
// as a separate entry.
func Normalize(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))

	for _, msg := range msgs {
		if len(out) == 0 {
			out = append(out, msg)
			continue
		}

		last := &out[len(out)-1]
		if last.Role != msg.Role {
			out = append(out, msg)
			continue
		}

		switch msg.Role {
		case RoleUser:
			last.Content += userMergeSeparator + msg.Content
		case RoleAssistant:
			last.Content = msg.Content
		default:
			out = append(out, msg)
		}
	}

	return out
}
