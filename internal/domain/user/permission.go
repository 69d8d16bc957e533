package user

type Permission string

const (
	// Attendance
	PermissionAttendanceRecord  Permission = "attendance.record"
	PermissionAttendanceViewAll Permission = "attendance.view_all"

	// Approvals
	PermissionApprovalSubmit  Permission = "approval.submit"
	PermissionApprovalViewAll Permission = "approval.view_all"
	PermissionApprovalDecide  Permission = "approval.decide"

	// Payroll
	PermissionPayrollManage Permission = "payroll.manage"
	PermissionPayrollView   Permission = "payroll.view"

	// Company
	PermissionCompanyManage  Permission = "company.manage"
	PermissionEmployeeManage Permission = "employee.manage"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleStaff: {
		PermissionAttendanceRecord,
		PermissionApprovalSubmit,
	},
	RolePrincipal: {
		PermissionAttendanceRecord,
		PermissionAttendanceViewAll,
		PermissionApprovalSubmit,
		PermissionApprovalViewAll,
		PermissionApprovalDecide,
		PermissionPayrollView,
	},
	RoleBursar: {
		PermissionAttendanceRecord,
		PermissionAttendanceViewAll,
		PermissionApprovalSubmit,
		PermissionApprovalViewAll,
		PermissionPayrollManage,
		PermissionPayrollView,
	},
	RoleAdmin: {
		PermissionAttendanceViewAll,
		PermissionApprovalViewAll,
		PermissionApprovalDecide,
		PermissionPayrollManage,
		PermissionPayrollView,
		PermissionCompanyManage,
		PermissionEmployeeManage,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
