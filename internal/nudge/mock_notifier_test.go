package nudge

type mockNotifier struct {
	called bool
	habits []string
	err    error
}

func (m *mockNotifier) SendNudge(openHabits []string) error {
	m.called = true
	m.habits = openHabits
	return m.err
}
