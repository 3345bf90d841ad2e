package matrix

// FindMessageByBody finds the m.room.message event whose body equals body
func FindMessageByBody(events []map[string]any, body string) map[string]any {
	for _, event := range FindEventsByType(events, "m.room.message") {
		if content, ok := GetEventContent(event); ok && content["body"] == body {
			return event
		}
	}
	return nil
}

// FindEventByID finds an event by its event ID
func FindEventByID(events []map[string]any, eventID string) map[string]any {
	for _, event := range events {
		if id, ok := GetEventID(event); ok && id == eventID {
			return event
		}
	}
	return nil
}

// FindEventsByType finds all events of a specific type
func FindEventsByType(events []map[string]any, eventType string) []map[string]any {
	var result []map[string]any
	for _, event := range events {
		if event["type"] == eventType {
			result = append(result, event)
		}
	}
	return result
}

// GetEventContent extracts the content of an event
func GetEventContent(event map[string]any) (map[string]any, bool) {
	content, ok := event["content"].(map[string]any)
	return content, ok
}

// GetEventID extracts the event ID of an event
func GetEventID(event map[string]any) (string, bool) {
	eventID, ok := event["event_id"].(string)
	return eventID, ok
}
