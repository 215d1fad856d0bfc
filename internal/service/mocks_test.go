package service

import (
	"sort"
	"time"

	"github.com/planora-app/planora-backend/internal/models"
	"github.com/planora-app/planora-backend/internal/repository"
	"gorm.io/gorm"
)

// MockUserRepository is an in-memory implementation of UserRepositoryInterface
type MockUserRepository struct {
	users  map[uint]*models.User
	nextID uint
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[uint]*models.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) Add(user *models.User) *models.User {
	if user.ID == 0 {
		user.ID = m.nextID
	}
	if user.ID >= m.nextID {
		m.nextID = user.ID + 1
	}
	m.users[user.ID] = user
	return user
}

func (m *MockUserRepository) Create(user *models.User) error {
	m.Add(user)
	return nil
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByUsername(username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) FindByID(id uint) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockUserRepository) Update(user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) UpdateOnlineStatus(userID uint, isOnline bool) error {
	if u, ok := m.users[userID]; ok {
		u.IsOnline = isOnline
		now := time.Now()
		u.LastSeen = &now
	}
	return nil
}

func (m *MockUserRepository) SearchUsers(query string, limit int) ([]models.User, error) {
	var result []models.User
	for _, u := range m.users {
		if len(result) >= limit {
			break
		}
		result = append(result, *u)
	}
	return result, nil
}

func (m *MockUserRepository) ListActiveIDs() ([]uint, error) {
	var ids []uint
	for _, u := range m.users {
		if !u.IsBanned {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MockUserRepository) List(filter repository.UserFilter) ([]models.User, int64, error) {
	var result []models.User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Banned != nil && u.IsBanned != *filter.Banned {
			continue
		}
		result = append(result, *u)
	}
	return result, int64(len(result)), nil
}

// MockMessageRepository mirrors the transactional message store, including the
// conversation side effects the real one commits alongside each insert.
type MockMessageRepository struct {
	messages      map[uint]*models.Message
	conversations map[[2]uint]*models.Conversation
	nextID        uint
	createErr     error
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages:      make(map[uint]*models.Message),
		conversations: make(map[[2]uint]*models.Conversation),
		nextID:        1,
	}
}

func (m *MockMessageRepository) pairOf(a, b uint) [2]uint {
	u1, u2 := models.CanonicalPair(a, b)
	return [2]uint{u1, u2}
}

func (m *MockMessageRepository) Conversation(a, b uint) *models.Conversation {
	return m.conversations[m.pairOf(a, b)]
}

func (m *MockMessageRepository) Create(message *models.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	if message.ID == 0 {
		message.ID = m.nextID
		m.nextID++
	}
	message.CreatedAt = time.Now()
	m.messages[message.ID] = message

	key := m.pairOf(message.SenderID, message.RecipientID)
	conv, ok := m.conversations[key]
	if !ok {
		conv = models.NewConversation(message.SenderID, message.RecipientID)
		m.conversations[key] = conv
	}
	conv.LastMessageID = &message.ID
	conv.LastActivity = message.CreatedAt
	conv.IncrementUnreadFor(message.RecipientID)
	return nil
}

func (m *MockMessageRepository) FindByID(id uint) (*models.Message, error) {
	if msg, ok := m.messages[id]; ok {
		return msg, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockMessageRepository) FindConversationPage(userID, peerID uint, beforeID uint, limit int) ([]models.Message, error) {
	var result []models.Message
	for _, msg := range m.messages {
		if beforeID != 0 && msg.ID >= beforeID {
			continue
		}
		if (msg.SenderID == userID && msg.RecipientID == peerID) ||
			(msg.SenderID == peerID && msg.RecipientID == userID) {
			result = append(result, *msg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *MockMessageRepository) MarkConversationRead(userID, peerID uint) (int64, error) {
	var flipped int64
	for _, msg := range m.messages {
		if msg.SenderID == peerID && msg.RecipientID == userID && !msg.IsRead {
			msg.IsRead = true
			now := time.Now()
			msg.ReadAt = &now
			flipped++
		}
	}
	if conv, ok := m.conversations[m.pairOf(userID, peerID)]; ok {
		conv.ResetUnreadFor(userID)
	}
	return flipped, nil
}

func (m *MockMessageRepository) DeleteOwn(messageID, senderID uint) (int64, error) {
	msg, ok := m.messages[messageID]
	if !ok || msg.SenderID != senderID {
		return 0, nil
	}
	delete(m.messages, messageID)
	return 1, nil
}

// MockConversationRepository reads from a MockMessageRepository's state
type MockConversationRepository struct {
	messages *MockMessageRepository
}

func NewMockConversationRepository(messages *MockMessageRepository) *MockConversationRepository {
	return &MockConversationRepository{messages: messages}
}

func (m *MockConversationRepository) FindByUsers(userA, userB uint) (*models.Conversation, error) {
	if conv := m.messages.Conversation(userA, userB); conv != nil {
		return conv, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockConversationRepository) ListForUser(userID uint) ([]repository.ConversationRow, error) {
	var rows []repository.ConversationRow
	for _, conv := range m.messages.conversations {
		if !conv.HasParticipant(userID) {
			continue
		}
		rows = append(rows, repository.ConversationRow{
			ConversationID: conv.ID,
			LastActivity:   conv.LastActivity,
			UnreadCount:    int64(conv.UnreadFor(userID)),
			PeerID:         conv.PeerOf(userID),
		})
	}
	return rows, nil
}

func (m *MockConversationRepository) TotalUnread(userID uint) (int64, error) {
	var total int64
	for _, conv := range m.messages.conversations {
		if conv.HasParticipant(userID) {
			total += int64(conv.UnreadFor(userID))
		}
	}
	return total, nil
}

// MockNotificationRepository stores notifications and re-derives announcement
// visibility the way the real query does.
type MockNotificationRepository struct {
	notifications map[uint]*models.Notification
	announcements map[uint]*models.SystemAnnouncement
	nextID        uint
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[uint]*models.Notification),
		announcements: make(map[uint]*models.SystemAnnouncement),
		nextID:        1,
	}
}

func (m *MockNotificationRepository) AddAnnouncement(ann *models.SystemAnnouncement) {
	m.announcements[ann.ID] = ann
}

func (m *MockNotificationRepository) Create(notification *models.Notification) error {
	if notification.ID == 0 {
		notification.ID = m.nextID
		m.nextID++
	}
	notification.CreatedAt = time.Now()
	m.notifications[notification.ID] = notification
	return nil
}

func (m *MockNotificationRepository) visible(n *models.Notification, now time.Time) bool {
	if n.AnnouncementID == nil {
		return true
	}
	ann, ok := m.announcements[*n.AnnouncementID]
	if !ok {
		return true
	}
	return ann.ActiveAt(now)
}

func (m *MockNotificationRepository) ListVisible(userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	now := time.Now()
	var result []models.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		if !m.visible(n, now) {
			continue
		}
		result = append(result, *n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockNotificationRepository) FindByAnnouncementForUsers(announcementID uint, userIDs []uint) ([]models.Notification, error) {
	set := make(map[uint]struct{}, len(userIDs))
	for _, id := range userIDs {
		set[id] = struct{}{}
	}
	var result []models.Notification
	for _, n := range m.notifications {
		if n.AnnouncementID == nil || *n.AnnouncementID != announcementID {
			continue
		}
		if _, ok := set[n.UserID]; ok {
			result = append(result, *n)
		}
	}
	return result, nil
}

func (m *MockNotificationRepository) MarkRead(notificationID, userID uint) error {
	if n, ok := m.notifications[notificationID]; ok && n.UserID == userID && !n.IsRead {
		n.IsRead = true
		now := time.Now()
		n.ReadAt = &now
	}
	return nil
}

func (m *MockNotificationRepository) MarkAllRead(userID uint) (int64, error) {
	var marked int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			now := time.Now()
			n.ReadAt = &now
			marked++
		}
	}
	return marked, nil
}

func (m *MockNotificationRepository) UnreadCount(userID uint) (int64, error) {
	now := time.Now()
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead && m.visible(n, now) {
			count++
		}
	}
	return count, nil
}

// MockAnnouncementRepository mirrors the transactional publish: announcement,
// audit entry, and notification rows land together or not at all.
type MockAnnouncementRepository struct {
	announcements map[uint]*models.SystemAnnouncement
	notifRepo     *MockNotificationRepository
	auditRepo     *MockAuditLogRepository
	nextID        uint
	publishErr    error
}

func NewMockAnnouncementRepository(notifRepo *MockNotificationRepository, auditRepo *MockAuditLogRepository) *MockAnnouncementRepository {
	return &MockAnnouncementRepository{
		announcements: make(map[uint]*models.SystemAnnouncement),
		notifRepo:     notifRepo,
		auditRepo:     auditRepo,
		nextID:        1,
	}
}

func (m *MockAnnouncementRepository) Publish(announcement *models.SystemAnnouncement, audit *models.AuditLog, notifications []models.Notification) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	if announcement.ID == 0 {
		announcement.ID = m.nextID
		m.nextID++
	}
	m.announcements[announcement.ID] = announcement
	audit.TargetID = announcement.ID
	_ = m.auditRepo.Create(audit)
	for i := range notifications {
		notifications[i].AnnouncementID = &announcement.ID
		_ = m.notifRepo.Create(&notifications[i])
	}
	m.notifRepo.AddAnnouncement(announcement)
	return nil
}

func (m *MockAnnouncementRepository) FindByID(id uint) (*models.SystemAnnouncement, error) {
	if ann, ok := m.announcements[id]; ok {
		return ann, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockAnnouncementRepository) List(limit, offset int) ([]models.SystemAnnouncement, int64, error) {
	var result []models.SystemAnnouncement
	for _, ann := range m.announcements {
		result = append(result, *ann)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, int64(len(result)), nil
}

func (m *MockAnnouncementRepository) DeleteWithNotifications(id uint, audit *models.AuditLog) error {
	if _, ok := m.announcements[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.announcements, id)
	for nid, n := range m.notifRepo.notifications {
		if n.AnnouncementID != nil && *n.AnnouncementID == id {
			delete(m.notifRepo.notifications, nid)
		}
	}
	_ = m.auditRepo.Create(audit)
	return nil
}

func (m *MockAnnouncementRepository) DueForActivation(since, until time.Time) ([]models.SystemAnnouncement, error) {
	var result []models.SystemAnnouncement
	for _, ann := range m.announcements {
		if !ann.IsActive {
			continue
		}
		if ann.StartDate.After(since) && !ann.StartDate.After(until) {
			result = append(result, *ann)
		}
	}
	return result, nil
}

func (m *MockAnnouncementRepository) MarkNotified(id uint, at time.Time) error {
	if ann, ok := m.announcements[id]; ok {
		ann.LastNotifiedAt = &at
	}
	return nil
}

// MockAccountStatusRepository applies status transitions to a shared
// MockUserRepository and records the audit entry with them.
type MockAccountStatusRepository struct {
	users     *MockUserRepository
	auditRepo *MockAuditLogRepository
	failNext  error
}

func NewMockAccountStatusRepository(users *MockUserRepository, auditRepo *MockAuditLogRepository) *MockAccountStatusRepository {
	return &MockAccountStatusRepository{users: users, auditRepo: auditRepo}
}

func (m *MockAccountStatusRepository) SetBanStatus(userID uint, banned bool, reason string, bannedAt *time.Time, audit *models.AuditLog) error {
	if m.failNext != nil {
		return m.failNext
	}
	u, ok := m.users.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsBanned = banned
	u.BanReason = reason
	u.BannedAt = bannedAt
	return m.auditRepo.Create(audit)
}

func (m *MockAccountStatusRepository) SetRole(userID uint, role string, audit *models.AuditLog) error {
	if m.failNext != nil {
		return m.failNext
	}
	u, ok := m.users.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Role = role
	return m.auditRepo.Create(audit)
}

func (m *MockAccountStatusRepository) SoftDelete(userID uint, audit *models.AuditLog) error {
	if m.failNext != nil {
		return m.failNext
	}
	if _, ok := m.users.users[userID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users.users, userID)
	return m.auditRepo.Create(audit)
}

// MockAuditLogRepository collects audit entries in memory
type MockAuditLogRepository struct {
	entries []models.AuditLog
}

func NewMockAuditLogRepository() *MockAuditLogRepository {
	return &MockAuditLogRepository{}
}

func (m *MockAuditLogRepository) Create(entry *models.AuditLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *MockAuditLogRepository) List(filter repository.AuditLogFilter) ([]models.AuditLog, int64, error) {
	return m.entries, int64(len(m.entries)), nil
}

// MockRefreshTokenRepository stores refresh tokens keyed by hash
type MockRefreshTokenRepository struct {
	tokens map[string]*models.RefreshToken
}

func NewMockRefreshTokenRepository() *MockRefreshTokenRepository {
	return &MockRefreshTokenRepository{tokens: make(map[string]*models.RefreshToken)}
}

func (m *MockRefreshTokenRepository) Create(token *models.RefreshToken) error {
	m.tokens[token.TokenHash] = token
	return nil
}

func (m *MockRefreshTokenRepository) FindValidByHash(tokenHash string) (*models.RefreshToken, error) {
	if tok, ok := m.tokens[tokenHash]; ok && tok.IsValid(time.Now()) {
		return tok, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockRefreshTokenRepository) RevokeByHash(tokenHash string) error {
	if tok, ok := m.tokens[tokenHash]; ok {
		now := time.Now()
		tok.RevokedAt = &now
	}
	return nil
}

// MockLivePush records pushed events instead of writing to sockets
type MockLivePush struct {
	online map[uint]bool
	pushes []pushedEvent
}

type pushedEvent struct {
	UserID uint
	Event  string
	Data   interface{}
}

func NewMockLivePush(onlineIDs ...uint) *MockLivePush {
	online := make(map[uint]bool, len(onlineIDs))
	for _, id := range onlineIDs {
		online[id] = true
	}
	return &MockLivePush{online: online}
}

func (m *MockLivePush) Push(userID uint, event string, data interface{}) error {
	m.pushes = append(m.pushes, pushedEvent{UserID: userID, Event: event, Data: data})
	return nil
}

func (m *MockLivePush) IsOnline(userID uint) bool {
	return m.online[userID]
}

func (m *MockLivePush) OnlineUserIDs() []uint {
	var ids []uint
	for id, on := range m.online {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *MockLivePush) PushesFor(userID uint, event string) int {
	count := 0
	for _, p := range m.pushes {
		if p.UserID == userID && p.Event == event {
			count++
		}
	}
	return count
}
